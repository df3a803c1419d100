package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jhalloran/linkgate/internal/auth"
	"github.com/jhalloran/linkgate/internal/models"
	pkglogger "github.com/jhalloran/linkgate/pkg/logger"
)

// AccessGrantRepository defines the persistence operations for access
// grants.
type AccessGrantRepository interface {
	Upsert(ctx context.Context, accountID, appID, accessToken, refreshToken string, expiresAt time.Time) (*models.AccessGrant, error)
	GetByAccessToken(ctx context.Context, accessToken string) (*models.AccessGrant, error)
	RotateAccessToken(ctx context.Context, refreshToken, newAccessToken string, expiresAt time.Time) (*models.AccessGrant, error)
}

// GrantService issues and refreshes access grants. Issuance rotates
// both tokens of the pair row; refresh rotates only the access token.
type GrantService struct {
	repo        AccessGrantRepository
	ttl         time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewGrantService creates a new GrantService
func NewGrantService(repo AccessGrantRepository, ttl time.Duration, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *GrantService {
	return &GrantService{
		repo:        repo,
		ttl:         ttl,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// IssueOrRenew assigns a fresh access/refresh token pair and expiry
// for the (account, app) pair, creating the row if needed. Both
// tokens rotate on this path.
func (s *GrantService) IssueOrRenew(ctx context.Context, accountID, appID string) (*models.AccessGrant, error) {
	accessToken, err := auth.NewOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := auth.NewOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	grant, err := s.repo.Upsert(ctx, accountID, appID, accessToken, refreshToken, time.Now().Add(s.ttl))
	if err != nil {
		s.logger.Error("failed to persist access grant",
			slog.String("account_id", accountID),
			slog.String("app_id", appID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogCredentialIssued("access_grant_issued", accountID, appID, nil)
	return grant, nil
}

// Refresh rotates the access token of the grant holding refreshToken.
// The refresh token is not rotated. Unknown tokens fail with
// ErrInvalidAccess and mutate nothing; a grant that is still
// unavailable after the rotation surfaces the same failure.
func (s *GrantService) Refresh(ctx context.Context, refreshToken string) (*models.AccessGrant, error) {
	accessToken, err := auth.NewOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	grant, err := s.repo.RotateAccessToken(ctx, refreshToken, accessToken, time.Now().Add(s.ttl))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidAccess
		}
		s.logger.Error("failed to rotate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !grant.IsAvailable() {
		return nil, models.ErrInvalidAccess
	}

	s.auditLogger.LogCredentialIssued("access_token_refreshed", grant.AccountID, grant.AppID, nil)
	return grant, nil
}

// LookupByAccessToken finds the grant holding accessToken.
func (s *GrantService) LookupByAccessToken(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
	return s.repo.GetByAccessToken(ctx, accessToken)
}
