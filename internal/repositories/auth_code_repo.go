package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhalloran/linkgate/internal/database"
	"github.com/jhalloran/linkgate/internal/models"
)

const authCodeColumns = `id, account_id, app_id, code, expires_at, created_at, updated_at`

type AuthCodeRepository struct {
	pool *pgxpool.Pool
}

func NewAuthCodeRepository(db *database.DB) *AuthCodeRepository {
	return &AuthCodeRepository{pool: db.Pool}
}

func scanAuthCodeRow(scanner rowScanner) (*models.AuthorizationCode, error) {
	var code models.AuthorizationCode

	err := scanner.Scan(
		&code.ID, &code.AccountID, &code.AppID, &code.Code,
		&code.ExpiresAt, &code.CreatedAt, &code.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &code, nil
}

// Upsert creates or resets the single code row for an (account, app)
// pair in one statement. The unique constraint on the pair is the
// natural key; concurrent logins race on the same row rather than
// inserting duplicates.
func (r *AuthCodeRepository) Upsert(ctx context.Context, accountID, appID, code string, expiresAt time.Time) (*models.AuthorizationCode, error) {
	query := `
		INSERT INTO authorization_codes (id, account_id, app_id, code, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (account_id, app_id) DO UPDATE
		SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, updated_at = NOW()
		RETURNING ` + authCodeColumns + `
	`

	return scanAuthCodeRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), accountID, appID, code, expiresAt,
	))
}

func (r *AuthCodeRepository) GetByAppAndCode(ctx context.Context, appID, code string) (*models.AuthorizationCode, error) {
	query := `SELECT ` + authCodeColumns + ` FROM authorization_codes WHERE app_id = $1 AND code = $2`

	return scanAuthCodeRow(r.pool.QueryRow(ctx, query, appID, code))
}

// DeleteExpiredBefore removes code rows whose expiry is older than the
// cutoff. Issuance never deletes; this is retention maintenance only.
func (r *AuthCodeRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM authorization_codes WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
