package repositories

import (
	"time"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhalloran/linkgate/internal/database"
	"github.com/jhalloran/linkgate/internal/models"
)

type AppRepository struct {
	pool *pgxpool.Pool
}

func NewAppRepository(db *database.DB) *AppRepository {
	return &AppRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppRow(scanner rowScanner) (*models.App, error) {
	var app models.App
	var restriction string

	err := scanner.Scan(
		&app.ID, &app.Name, &app.Domain, &app.Key,
		&app.IconURL, &app.OwnerID, &app.Deleted, &restriction,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	app.Restriction = models.ParseRestrictionPolicy(restriction)
	return &app, nil
}

func (r *AppRepository) GetByID(ctx context.Context, id string) (*models.App, error) {
	query := `
		SELECT id, name, domain, app_key, icon_url, owner_id, deleted, restriction, created_at, updated_at
		FROM apps WHERE id = $1
	`

	return scanAppRow(r.pool.QueryRow(ctx, query, id))
}

// Create inserts a new App row. App lifecycle is owned by the
// administrative surface; the gateway core uses this for bootstrap
// and test seeding only.
func (r *AppRepository) Create(ctx context.Context, app *models.App) (*models.App, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}

	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now

	query := `
		INSERT INTO apps (id, name, domain, app_key, icon_url, owner_id, deleted, restriction, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, name, domain, app_key, icon_url, owner_id, deleted, restriction, created_at, updated_at
	`

	return scanAppRow(r.pool.QueryRow(ctx, query,
		app.ID, app.Name, app.Domain, app.Key,
		app.IconURL, app.OwnerID, app.Deleted, app.Restriction.String(),
		app.CreatedAt, app.UpdatedAt,
	))
}
