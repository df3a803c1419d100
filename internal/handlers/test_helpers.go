package handlers

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhalloran/linkgate/internal/metrics"
	"github.com/jhalloran/linkgate/internal/models"
	"github.com/jhalloran/linkgate/internal/services"
	pkghttp "github.com/jhalloran/linkgate/pkg/http"
)

// MockGateway implements GatewayInterface for testing
type MockGateway struct {
	AppInfoFunc    func(ctx context.Context, appID string) (*services.AppInfoResponse, error)
	LoginFunc      func(ctx context.Context, appID, accountName, signature string, timestamp int64, callerAddr string) (*services.LoginResponse, error)
	TokenFunc      func(ctx context.Context, appID, accountName, signature string, timestamp int64, callerAddr string) (*services.TokenResponse, error)
	AuthorizeFunc  func(ctx context.Context, appID, appKey, authToken, callerAddr string) (*services.AuthorizationResponse, error)
	RefreshFunc    func(ctx context.Context, refreshToken string) (*services.TokenResponse, error)
	UserInfoFunc   func(ctx context.Context, accessToken string) (*services.UserInfoResponse, error)
	FriendListFunc func(ctx context.Context, accessToken string, opens []string) ([]services.FriendResponse, error)
}

func (m *MockGateway) AppInfo(ctx context.Context, appID string) (*services.AppInfoResponse, error) {
	if m.AppInfoFunc != nil {
		return m.AppInfoFunc(ctx, appID)
	}
	return nil, models.ErrNotFound
}

func (m *MockGateway) Login(ctx context.Context, appID, accountName, signature string, timestamp int64, callerAddr string) (*services.LoginResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, appID, accountName, signature, timestamp, callerAddr)
	}
	return nil, models.ErrInvalidCredential
}

func (m *MockGateway) Token(ctx context.Context, appID, accountName, signature string, timestamp int64, callerAddr string) (*services.TokenResponse, error) {
	if m.TokenFunc != nil {
		return m.TokenFunc(ctx, appID, accountName, signature, timestamp, callerAddr)
	}
	return nil, models.ErrInvalidCredential
}

func (m *MockGateway) Authorize(ctx context.Context, appID, appKey, authToken, callerAddr string) (*services.AuthorizationResponse, error) {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, appID, appKey, authToken, callerAddr)
	}
	return nil, models.ErrInvalidCredential
}

func (m *MockGateway) Refresh(ctx context.Context, refreshToken string) (*services.TokenResponse, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrInvalidAccess
}

func (m *MockGateway) UserInfo(ctx context.Context, accessToken string) (*services.UserInfoResponse, error) {
	if m.UserInfoFunc != nil {
		return m.UserInfoFunc(ctx, accessToken)
	}
	return nil, models.ErrInvalidAccess
}

func (m *MockGateway) FriendList(ctx context.Context, accessToken string, opens []string) ([]services.FriendResponse, error) {
	if m.FriendListFunc != nil {
		return m.FriendListFunc(ctx, accessToken, opens)
	}
	if len(opens) == 0 {
		return nil, models.ErrEmptyOpens
	}
	return []services.FriendResponse{}, nil
}

func newTestConnectHandler(gateway GatewayInterface) *ConnectHandler {
	m := metrics.New(prometheus.NewRegistry())
	return NewConnectHandler(gateway, pkghttp.NewIPConfig(nil), m)
}
