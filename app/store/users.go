package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/propertyscope/propertyscope-api/app/models"
)

// UpsertUser records a login for the session subject. Blank email or name
// never overwrite values already stored.
func (p *Postgres) UpsertUser(ctx context.Context, id, email, name string) error {
	now := p.timestamp()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			last_login_at = EXCLUDED.last_login_at;
	`, id, email, name, now)
	return err
}

func (p *Postgres) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := p.db.QueryRowContext(ctx, `
		SELECT id, email, name, created_at, last_login_at
		FROM users
		WHERE id = $1;
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}
