package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhalloran/linkgate/internal/database"
	"github.com/jhalloran/linkgate/internal/models"
)

const accessGrantColumns = `id, account_id, app_id, access_token, refresh_token, expires_at, created_at, updated_at`

type AccessGrantRepository struct {
	pool *pgxpool.Pool
}

func NewAccessGrantRepository(db *database.DB) *AccessGrantRepository {
	return &AccessGrantRepository{pool: db.Pool}
}

func scanAccessGrantRow(scanner rowScanner) (*models.AccessGrant, error) {
	var grant models.AccessGrant

	err := scanner.Scan(
		&grant.ID, &grant.AccountID, &grant.AppID,
		&grant.AccessToken, &grant.RefreshToken, &grant.ExpiresAt,
		&grant.CreatedAt, &grant.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &grant, nil
}

// Upsert creates or resets the single grant row for an (account, app)
// pair, rotating both tokens, in one statement.
func (r *AccessGrantRepository) Upsert(ctx context.Context, accountID, appID, accessToken, refreshToken string, expiresAt time.Time) (*models.AccessGrant, error) {
	query := `
		INSERT INTO access_grants (id, account_id, app_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (account_id, app_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
		RETURNING ` + accessGrantColumns + `
	`

	return scanAccessGrantRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), accountID, appID, accessToken, refreshToken, expiresAt,
	))
}

func (r *AccessGrantRepository) GetByAccessToken(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
	query := `SELECT ` + accessGrantColumns + ` FROM access_grants WHERE access_token = $1`

	return scanAccessGrantRow(r.pool.QueryRow(ctx, query, accessToken))
}

// RotateAccessToken swaps in a new access token for the grant holding
// refreshToken, leaving the refresh token itself untouched. The lookup
// is by refresh token alone, so any holder of a live refresh token may
// rotate regardless of pair. Returns ErrNotFound for unknown tokens
// and mutates nothing in that case.
func (r *AccessGrantRepository) RotateAccessToken(ctx context.Context, refreshToken, newAccessToken string, expiresAt time.Time) (*models.AccessGrant, error) {
	query := `
		UPDATE access_grants
		SET access_token = $2, expires_at = $3, updated_at = NOW()
		WHERE refresh_token = $1
		RETURNING ` + accessGrantColumns + `
	`

	return scanAccessGrantRow(r.pool.QueryRow(ctx, query, refreshToken, newAccessToken, expiresAt))
}

// CountByPair reports how many grant rows exist for the pair. The
// upsert discipline keeps this at one; exposed for verification.
func (r *AccessGrantRepository) CountByPair(ctx context.Context, accountID, appID string) (int, error) {
	query := `SELECT COUNT(*) FROM access_grants WHERE account_id = $1 AND app_id = $2`

	var count int
	err := r.pool.QueryRow(ctx, query, accountID, appID).Scan(&count)
	return count, err
}

// DeleteExpiredBefore removes grant rows whose expiry is older than
// the cutoff. Retention maintenance only.
func (r *AccessGrantRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM access_grants WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
