package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jhalloran/linkgate/internal/models"
	pkglogger "github.com/jhalloran/linkgate/pkg/logger"
)

// LockoutAccountRepository defines the account mutations the lockout
// tracker needs. Every operation is a single atomic statement against
// the account row.
type LockoutAccountRepository interface {
	ResetDailyCounter(ctx context.Context, id string, day time.Time) (*models.Account, error)
	RecordFailure(ctx context.Context, id string) (*models.Account, error)
	ClearFailures(ctx context.Context, id string) error
}

// LockoutService tracks per-account daily signature failures and
// denies further processing once the daily threshold is reached. The
// counter window resets at the local calendar day boundary.
type LockoutService struct {
	repo             LockoutAccountRepository
	maxDailyFailures int
	logger           *slog.Logger
	auditLogger      *pkglogger.AuditLogger
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(repo LockoutAccountRepository, maxDailyFailures int, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LockoutService {
	return &LockoutService{
		repo:             repo,
		maxDailyFailures: maxDailyFailures,
		logger:           logger,
		auditLogger:      auditLogger,
	}
}

// CheckDailyReset clears a stale counter when the stored window date
// differs from today, advancing the date. Idempotent; called first on
// every credentialed attempt. The account is updated in place to
// reflect the persisted state.
func (s *LockoutService) CheckDailyReset(ctx context.Context, account *models.Account) error {
	now := time.Now()
	if sameDay(account.LastErrorDate, now) {
		return nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	updated, err := s.repo.ResetDailyCounter(ctx, account.ID, today)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// A concurrent attempt already reset the window; mirror it.
			account.TodayErrorCount = 0
			account.LastErrorDate = today
			return nil
		}
		s.logger.Error("failed to reset daily counter",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	*account = *updated
	return nil
}

// IsLocked reports whether the account has exhausted today's failure
// budget.
func (s *LockoutService) IsLocked(account *models.Account) bool {
	return account.TodayErrorCount >= s.maxDailyFailures
}

// RecordOutcome persists the result of a signature check. Failures
// bump both counters atomically; a success clears the daily counter
// without touching the lifetime one.
func (s *LockoutService) RecordOutcome(ctx context.Context, account *models.Account, succeeded bool) error {
	if succeeded {
		if account.TodayErrorCount == 0 {
			return nil
		}
		if err := s.repo.ClearFailures(ctx, account.ID); err != nil {
			s.logger.Error("failed to clear failure counter",
				slog.String("account_id", account.ID), slog.Any("error", err))
			return models.ErrInternalServer
		}
		account.TodayErrorCount = 0
		return nil
	}

	updated, err := s.repo.RecordFailure(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to record signature failure",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	*account = *updated

	if updated.TodayErrorCount == s.maxDailyFailures {
		s.auditLogger.LogLockout(account.ID, updated.TodayErrorCount)
	}

	return nil
}

// sameDay reports whether two instants fall on the same local
// calendar date.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
