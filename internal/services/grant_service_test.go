package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhalloran/linkgate/internal/models"
)

func newTestGrantService(repo AccessGrantRepository, ttl time.Duration) *GrantService {
	return NewGrantService(repo, ttl, newTestLogger(), newTestAuditLogger())
}

func TestGrantService_IssueOrRenew(t *testing.T) {
	var gotAccess, gotRefresh string
	repo := &MockAccessGrantRepository{
		UpsertFunc: func(ctx context.Context, accountID, appID, accessToken, refreshToken string, expiresAt time.Time) (*models.AccessGrant, error) {
			gotAccess, gotRefresh = accessToken, refreshToken
			return &models.AccessGrant{
				AccountID:    accountID,
				AppID:        appID,
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    expiresAt,
			}, nil
		},
	}
	service := newTestGrantService(repo, time.Hour)

	grant, err := service.IssueOrRenew(context.Background(), "acc-1", "app-1")

	require.NoError(t, err)
	assert.Len(t, gotAccess, 32)
	assert.Len(t, gotRefresh, 32)
	assert.NotEqual(t, gotAccess, gotRefresh)
	assert.Equal(t, gotAccess, grant.AccessToken)
	assert.Equal(t, gotRefresh, grant.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), grant.ExpiresAt, 2*time.Second)
}

func TestGrantService_Refresh_KeepsRefreshToken(t *testing.T) {
	const refreshToken = "0123456789abcdef0123456789abcdef"

	repo := &MockAccessGrantRepository{
		RotateAccessTokenFunc: func(ctx context.Context, rt, newAccessToken string, expiresAt time.Time) (*models.AccessGrant, error) {
			require.Equal(t, refreshToken, rt)
			return &models.AccessGrant{
				AccountID:    "acc-1",
				AppID:        "app-1",
				AccessToken:  newAccessToken,
				RefreshToken: rt,
				ExpiresAt:    expiresAt,
			}, nil
		},
	}
	service := newTestGrantService(repo, time.Hour)

	grant, err := service.Refresh(context.Background(), refreshToken)

	require.NoError(t, err)
	assert.Equal(t, refreshToken, grant.RefreshToken)
	assert.NotEqual(t, refreshToken, grant.AccessToken)
	assert.Len(t, grant.AccessToken, 32)
}

func TestGrantService_Refresh_UnknownToken(t *testing.T) {
	repo := &MockAccessGrantRepository{
		RotateAccessTokenFunc: func(ctx context.Context, rt, newAccessToken string, expiresAt time.Time) (*models.AccessGrant, error) {
			return nil, models.ErrNotFound
		},
	}
	service := newTestGrantService(repo, time.Hour)

	_, err := service.Refresh(context.Background(), "no-such-token")

	assert.ErrorIs(t, err, models.ErrInvalidAccess)
}

func TestGrantService_Refresh_ExpiredAfterRotation(t *testing.T) {
	repo := &MockAccessGrantRepository{
		RotateAccessTokenFunc: func(ctx context.Context, rt, newAccessToken string, expiresAt time.Time) (*models.AccessGrant, error) {
			return &models.AccessGrant{
				AccessToken:  newAccessToken,
				RefreshToken: rt,
				ExpiresAt:    time.Now().Add(-time.Second),
			}, nil
		},
	}
	service := newTestGrantService(repo, time.Hour)

	_, err := service.Refresh(context.Background(), "0123456789abcdef0123456789abcdef")

	assert.ErrorIs(t, err, models.ErrInvalidAccess)
}

func TestGrantService_LookupByAccessToken(t *testing.T) {
	stored := &models.AccessGrant{
		AccountID:   "acc-1",
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	repo := &MockAccessGrantRepository{
		GetByAccessTokenFunc: func(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
			if accessToken == "tok" {
				return stored, nil
			}
			return nil, models.ErrNotFound
		},
	}
	service := newTestGrantService(repo, time.Hour)

	grant, err := service.LookupByAccessToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, stored, grant)

	_, err = service.LookupByAccessToken(context.Background(), "other")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
