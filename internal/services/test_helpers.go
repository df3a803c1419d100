package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jhalloran/linkgate/internal/models"
	pkglogger "github.com/jhalloran/linkgate/pkg/logger"
)

// MockAppRepository implements AppResolver for testing
type MockAppRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.App, error)
}

func (m *MockAppRepository) GetByID(ctx context.Context, id string) (*models.App, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

// MockAccountRepository implements AccountReader and
// LockoutAccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.Account, error)
	GetByNameFunc         func(ctx context.Context, name string) (*models.Account, error)
	GetByOpenIDsFunc      func(ctx context.Context, openIDs []string) ([]*models.Account, error)
	ResetDailyCounterFunc func(ctx context.Context, id string, day time.Time) (*models.Account, error)
	RecordFailureFunc     func(ctx context.Context, id string) (*models.Account, error)
	ClearFailuresFunc     func(ctx context.Context, id string) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByName(ctx context.Context, name string) (*models.Account, error) {
	if m.GetByNameFunc != nil {
		return m.GetByNameFunc(ctx, name)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByOpenIDs(ctx context.Context, openIDs []string) ([]*models.Account, error) {
	if m.GetByOpenIDsFunc != nil {
		return m.GetByOpenIDsFunc(ctx, openIDs)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) ResetDailyCounter(ctx context.Context, id string, day time.Time) (*models.Account, error) {
	if m.ResetDailyCounterFunc != nil {
		return m.ResetDailyCounterFunc(ctx, id, day)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) RecordFailure(ctx context.Context, id string) (*models.Account, error) {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, id)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) ClearFailures(ctx context.Context, id string) error {
	if m.ClearFailuresFunc != nil {
		return m.ClearFailuresFunc(ctx, id)
	}
	return nil
}

// MockAuthCodeRepository implements AuthCodeRepository for testing
type MockAuthCodeRepository struct {
	UpsertFunc          func(ctx context.Context, accountID, appID, code string, expiresAt time.Time) (*models.AuthorizationCode, error)
	GetByAppAndCodeFunc func(ctx context.Context, appID, code string) (*models.AuthorizationCode, error)
}

func (m *MockAuthCodeRepository) Upsert(ctx context.Context, accountID, appID, code string, expiresAt time.Time) (*models.AuthorizationCode, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, accountID, appID, code, expiresAt)
	}
	return &models.AuthorizationCode{
		AccountID: accountID,
		AppID:     appID,
		Code:      code,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *MockAuthCodeRepository) GetByAppAndCode(ctx context.Context, appID, code string) (*models.AuthorizationCode, error) {
	if m.GetByAppAndCodeFunc != nil {
		return m.GetByAppAndCodeFunc(ctx, appID, code)
	}
	return nil, models.ErrNotFound
}

// MockAccessGrantRepository implements AccessGrantRepository for testing
type MockAccessGrantRepository struct {
	UpsertFunc            func(ctx context.Context, accountID, appID, accessToken, refreshToken string, expiresAt time.Time) (*models.AccessGrant, error)
	GetByAccessTokenFunc  func(ctx context.Context, accessToken string) (*models.AccessGrant, error)
	RotateAccessTokenFunc func(ctx context.Context, refreshToken, newAccessToken string, expiresAt time.Time) (*models.AccessGrant, error)
}

func (m *MockAccessGrantRepository) Upsert(ctx context.Context, accountID, appID, accessToken, refreshToken string, expiresAt time.Time) (*models.AccessGrant, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, accountID, appID, accessToken, refreshToken, expiresAt)
	}
	return &models.AccessGrant{
		AccountID:    accountID,
		AppID:        appID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (m *MockAccessGrantRepository) GetByAccessToken(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
	if m.GetByAccessTokenFunc != nil {
		return m.GetByAccessTokenFunc(ctx, accessToken)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccessGrantRepository) RotateAccessToken(ctx context.Context, refreshToken, newAccessToken string, expiresAt time.Time) (*models.AccessGrant, error) {
	if m.RotateAccessTokenFunc != nil {
		return m.RotateAccessTokenFunc(ctx, refreshToken, newAccessToken, expiresAt)
	}
	return nil, models.ErrNotFound
}

// Test fixtures

func NewTestApp(id, key string) *models.App {
	return &models.App{
		ID:        id,
		Name:      "Test App",
		Domain:    "example.com",
		Key:       key,
		IconURL:   "https://example.com/icon.png",
		OwnerID:   "owner-1",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func NewTestAccount(id, name, password string) *models.Account {
	return &models.Account{
		ID:            id,
		Name:          name,
		Password:      password,
		OpenID:        "open-" + id,
		RealName:      "Test User",
		Nickname:      "tester",
		Available:     true,
		LastErrorDate: time.Now(),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
