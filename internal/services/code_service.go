package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jhalloran/linkgate/internal/auth"
	"github.com/jhalloran/linkgate/internal/models"
	pkglogger "github.com/jhalloran/linkgate/pkg/logger"
)

// AuthCodeRepository defines the persistence operations for
// authorization codes.
type AuthCodeRepository interface {
	Upsert(ctx context.Context, accountID, appID, code string, expiresAt time.Time) (*models.AuthorizationCode, error)
	GetByAppAndCode(ctx context.Context, appID, code string) (*models.AuthorizationCode, error)
}

// CodeService issues authorization codes. One row exists per
// (account, app) pair; reissuing replaces the code and expiry rather
// than inserting a second row.
type CodeService struct {
	repo        AuthCodeRepository
	ttl         time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewCodeService creates a new CodeService
func NewCodeService(repo AuthCodeRepository, ttl time.Duration, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *CodeService {
	return &CodeService{
		repo:        repo,
		ttl:         ttl,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// IssueOrRenew assigns a fresh code and expiry for the pair,
// creating the row if needed.
func (s *CodeService) IssueOrRenew(ctx context.Context, accountID, appID string) (*models.AuthorizationCode, error) {
	code, err := auth.NewOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate authorization code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	row, err := s.repo.Upsert(ctx, accountID, appID, code, time.Now().Add(s.ttl))
	if err != nil {
		s.logger.Error("failed to persist authorization code",
			slog.String("account_id", accountID),
			slog.String("app_id", appID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogCredentialIssued("auth_code_issued", accountID, appID, nil)
	return row, nil
}

// Lookup finds the code row bound to (appID, code). The row is not
// consumed; expiry alone limits reuse.
func (s *CodeService) Lookup(ctx context.Context, appID, code string) (*models.AuthorizationCode, error) {
	return s.repo.GetByAppAndCode(ctx, appID, code)
}
