package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhalloran/linkgate/internal/database"
	"github.com/jhalloran/linkgate/internal/models"
)

const accountColumns = `id, name, password, open_id, real_name, nickname, gender, phone, available,
		today_error_count, total_error_count, last_error_date, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.Name, &account.Password, &account.OpenID,
		&account.RealName, &account.Nickname, &account.Gender, &account.Phone,
		&account.Available, &account.TodayErrorCount, &account.TotalErrorCount,
		&account.LastErrorDate, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByName(ctx context.Context, name string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE name = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, name))
}

// GetByOpenIDs resolves a set of open ids to accounts. Unknown ids are
// silently absent from the result.
func (r *AccountRepository) GetByOpenIDs(ctx context.Context, openIDs []string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE open_id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, openIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	return scanAccountRows(rows)
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.OpenID == "" {
		account.OpenID = uuid.New().String()
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.LastErrorDate.IsZero() {
		account.LastErrorDate = now
	}

	query := `
		INSERT INTO accounts (id, name, password, open_id, real_name, nickname, gender, phone, available,
			today_error_count, total_error_count, last_error_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + accountColumns + `
	`

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Name, account.Password, account.OpenID,
		account.RealName, account.Nickname, account.Gender, account.Phone,
		account.Available, account.TodayErrorCount, account.TotalErrorCount,
		account.LastErrorDate, account.CreatedAt, account.UpdatedAt,
	))
}

// RecordFailure bumps both failure counters in a single statement so
// two concurrent failed attempts never lose an increment.
func (r *AccountRepository) RecordFailure(ctx context.Context, id string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET today_error_count = today_error_count + 1,
		    total_error_count = total_error_count + 1,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns + `
	`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

// ClearFailures zeroes the daily counter after a successful check. The
// lifetime counter is left untouched.
func (r *AccountRepository) ClearFailures(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET today_error_count = 0, updated_at = NOW()
		WHERE id = $1 AND today_error_count > 0
	`

	_, err := r.pool.Exec(ctx, query, id)
	return database.MapPostgresError(err)
}

// ResetDailyCounter zeroes the daily counter and advances the window
// date, but only when the stored date differs from day. Returns
// ErrNotFound when no reset was needed; the caller keeps its loaded
// row in that case. Single conditional statement, safe under
// concurrent attempts.
func (r *AccountRepository) ResetDailyCounter(ctx context.Context, id string, day time.Time) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET today_error_count = 0, last_error_date = $2::date, updated_at = NOW()
		WHERE id = $1 AND last_error_date <> $2::date
		RETURNING ` + accountColumns + `
	`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id, day))
}
