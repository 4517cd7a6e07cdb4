package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/propertyscope/propertyscope-api/app/models"
)

// CreateReport stores r. A linked property must belong to the same user,
// otherwise ErrNotFound is returned and nothing is written.
func (p *Postgres) CreateReport(ctx context.Context, r *models.Report) error {
	if r.PropertyID != nil && *r.PropertyID != "" {
		var one int
		err := p.db.QueryRowContext(ctx, `
			SELECT 1
			FROM properties
			WHERE id = $1 AND user_id = $2;
		`, *r.PropertyID, r.UserID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check property: %w", err)
		}
	}

	r.ID = p.newID()
	r.CreatedAt = p.timestamp()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO reports (id, user_id, property_id, title, type, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`,
		r.ID,
		r.UserID,
		nullString(r.PropertyID),
		r.Title,
		string(r.Type),
		jsonParam(r.Content),
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ListReports returns every report of the user, newest first.
func (p *Postgres) ListReports(ctx context.Context, userID string) ([]models.Report, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.property_id, r.title, r.type, r.content, r.created_at,`+propertyColumns+`
		FROM reports r
		LEFT JOIN properties p ON p.id = r.property_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Report{}
	for rows.Next() {
		var (
			r          models.Report
			propertyID sql.NullString
			typ        string
			content    []byte
			joined     joinedProperty
		)
		dest := append([]any{&r.ID, &r.UserID, &propertyID, &r.Title, &typ, &content, &r.CreatedAt}, joined.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.PropertyID = stringPtr(propertyID)
		r.Type = models.AnalysisType(typ)
		r.Content = content
		r.Property = joined.property()
		out = append(out, r)
	}
	return out, rows.Err()
}
