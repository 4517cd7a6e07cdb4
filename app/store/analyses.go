package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/propertyscope/propertyscope-api/app/models"
)

const propertyColumns = `
	p.id, p.user_id, p.address, p.city, p.state, p.zip_code, p.property_type,
	p.bedrooms, p.bathrooms, p.sqft, p.year_built, p.list_price, p.created_at`

// joinedProperty scans the nullable side of a LEFT JOIN on properties.
type joinedProperty struct {
	id           sql.NullString
	userID       sql.NullString
	address      sql.NullString
	city         sql.NullString
	state        sql.NullString
	zipCode      sql.NullString
	propertyType sql.NullString
	bedrooms     sql.NullInt64
	bathrooms    sql.NullFloat64
	sqft         sql.NullInt64
	yearBuilt    sql.NullInt64
	listPrice    sql.NullFloat64
	createdAt    sql.NullTime
}

func (j *joinedProperty) dest() []any {
	return []any{
		&j.id, &j.userID, &j.address, &j.city, &j.state, &j.zipCode, &j.propertyType,
		&j.bedrooms, &j.bathrooms, &j.sqft, &j.yearBuilt, &j.listPrice, &j.createdAt,
	}
}

func (j *joinedProperty) property() *models.Property {
	if !j.id.Valid {
		return nil
	}
	return &models.Property{
		ID:           j.id.String,
		UserID:       j.userID.String,
		Address:      j.address.String,
		City:         j.city.String,
		State:        j.state.String,
		ZipCode:      stringPtr(j.zipCode),
		PropertyType: models.PropertyType(j.propertyType.String),
		Bedrooms:     intPtr(j.bedrooms),
		Bathrooms:    floatPtr(j.bathrooms),
		Sqft:         intPtr(j.sqft),
		YearBuilt:    intPtr(j.yearBuilt),
		ListPrice:    floatPtr(j.listPrice),
		CreatedAt:    j.createdAt.Time,
	}
}

// CreateValuation writes the property and its analysis in one transaction.
// IDs and timestamps are assigned here; the analysis is linked to the property.
func (p *Postgres) CreateValuation(ctx context.Context, prop *models.Property, a *models.Analysis) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := p.timestamp()
	prop.ID = p.newID()
	prop.CreatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO properties (
			id, user_id, address, city, state, zip_code, property_type,
			bedrooms, bathrooms, sqft, year_built, list_price, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`,
		prop.ID,
		prop.UserID,
		prop.Address,
		prop.City,
		prop.State,
		nullString(prop.ZipCode),
		string(prop.PropertyType),
		nullInt(prop.Bedrooms),
		nullFloat(prop.Bathrooms),
		nullInt(prop.Sqft),
		nullInt(prop.YearBuilt),
		nullFloat(prop.ListPrice),
		prop.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}

	propertyID := prop.ID
	a.PropertyID = &propertyID
	if err := p.insertAnalysis(ctx, tx, a, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	a.Property = prop
	return nil
}

// CreateAnalysis stores a single analysis row.
func (p *Postgres) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	return p.insertAnalysis(ctx, p.db, a, p.timestamp())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (p *Postgres) insertAnalysis(ctx context.Context, ex execer, a *models.Analysis, now time.Time) error {
	a.ID = p.newID()
	a.CreatedAt = now

	_, err := ex.ExecContext(ctx, `
		INSERT INTO analyses (id, user_id, property_id, type, data, ai_insights, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`,
		a.ID,
		a.UserID,
		nullString(a.PropertyID),
		string(a.Type),
		jsonParam(a.Data),
		a.AIInsights,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// ListAnalyses returns the caller's newest analyses with their linked property.
// An empty kind lists every type.
func (p *Postgres) ListAnalyses(ctx context.Context, userID string, kind models.AnalysisType, limit int) ([]models.Analysis, error) {
	query := `
		SELECT a.id, a.user_id, a.property_id, a.type, a.data, a.ai_insights, a.created_at,` + propertyColumns + `
		FROM analyses a
		LEFT JOIN properties p ON p.id = a.property_id
		WHERE a.user_id = $1`
	args := []any{userID}
	if kind != "" {
		query += ` AND a.type = $2`
		args = append(args, string(kind))
	}
	query += fmt.Sprintf(` ORDER BY a.created_at DESC LIMIT $%d;`, len(args)+1)
	args = append(args, limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Analysis{}
	for rows.Next() {
		var (
			a          models.Analysis
			propertyID sql.NullString
			typ        string
			data       []byte
			joined     joinedProperty
		)
		dest := append([]any{&a.ID, &a.UserID, &propertyID, &typ, &data, &a.AIInsights, &a.CreatedAt}, joined.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		a.PropertyID = stringPtr(propertyID)
		a.Type = models.AnalysisType(typ)
		a.Data = data
		a.Property = joined.property()
		out = append(out, a)
	}
	return out, rows.Err()
}
