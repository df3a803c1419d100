package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhalloran/linkgate/internal/auth"
	"github.com/jhalloran/linkgate/internal/models"
)

// gatewayFixture wires a GatewayService over real sub-services and
// in-memory account state, so counter mutations persist across
// requests the way database rows would.
type gatewayFixture struct {
	app     *models.App
	account *models.Account

	apps     *MockAppRepository
	accounts *MockAccountRepository
	codes    *MockAuthCodeRepository
	grants   *MockAccessGrantRepository

	codeUpserts  int
	grantUpserts int

	service *GatewayService
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	f := &gatewayFixture{
		app:     NewTestApp("app-1", "app-key-1"),
		account: NewTestAccount("acc-1", "alice", "s3cr3t"),
	}

	f.apps = &MockAppRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.App, error) {
			if id == f.app.ID {
				copied := *f.app
				return &copied, nil
			}
			return nil, models.ErrNotFound
		},
	}

	f.accounts = &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			if id == f.account.ID {
				copied := *f.account
				return &copied, nil
			}
			return nil, models.ErrNotFound
		},
		GetByNameFunc: func(ctx context.Context, name string) (*models.Account, error) {
			if name == f.account.Name {
				copied := *f.account
				return &copied, nil
			}
			return nil, models.ErrNotFound
		},
		ResetDailyCounterFunc: func(ctx context.Context, id string, day time.Time) (*models.Account, error) {
			if sameDay(f.account.LastErrorDate, day) {
				return nil, models.ErrNotFound
			}
			f.account.TodayErrorCount = 0
			f.account.LastErrorDate = day
			copied := *f.account
			return &copied, nil
		},
		RecordFailureFunc: func(ctx context.Context, id string) (*models.Account, error) {
			f.account.TodayErrorCount++
			f.account.TotalErrorCount++
			copied := *f.account
			return &copied, nil
		},
		ClearFailuresFunc: func(ctx context.Context, id string) error {
			f.account.TodayErrorCount = 0
			return nil
		},
	}

	f.codes = &MockAuthCodeRepository{
		UpsertFunc: func(ctx context.Context, accountID, appID, code string, expiresAt time.Time) (*models.AuthorizationCode, error) {
			f.codeUpserts++
			return &models.AuthorizationCode{
				AccountID: accountID,
				AppID:     appID,
				Code:      code,
				ExpiresAt: expiresAt,
			}, nil
		},
	}

	f.grants = &MockAccessGrantRepository{
		UpsertFunc: func(ctx context.Context, accountID, appID, accessToken, refreshToken string, expiresAt time.Time) (*models.AccessGrant, error) {
			f.grantUpserts++
			return &models.AccessGrant{
				AccountID:    accountID,
				AppID:        appID,
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    expiresAt,
			}, nil
		},
	}

	logger := newTestLogger()
	audit := newTestAuditLogger()

	lockout := NewLockoutService(f.accounts, 10, logger, audit)
	codeService := NewCodeService(f.codes, 2*time.Minute, logger, audit)
	grantService := NewGrantService(f.grants, time.Hour, logger, audit)

	f.service = NewGatewayService(
		f.apps,
		f.accounts,
		codeService,
		grantService,
		lockout,
		auth.LegacyScheme{},
		5*time.Minute,
		nil,
		logger,
		audit,
	)

	return f
}

func (f *gatewayFixture) sign(timestamp int64) string {
	return auth.LegacyScheme{}.Sign(f.account.Name, f.account.Password, timestamp)
}

func TestGatewayService_AppInfo(t *testing.T) {
	f := newGatewayFixture(t)

	info, err := f.service.AppInfo(context.Background(), "app-1")

	require.NoError(t, err)
	assert.Equal(t, f.app.Name, info.Name)
	assert.Equal(t, f.app.Domain, info.Domain)
	assert.Equal(t, f.app.IconURL, info.Icon)
}

func TestGatewayService_AppInfo_UnknownApp(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.service.AppInfo(context.Background(), "app-missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGatewayService_AppInfo_DeletedAppLooksMissing(t *testing.T) {
	f := newGatewayFixture(t)
	f.app.Deleted = true

	_, err := f.service.AppInfo(context.Background(), "app-1")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGatewayService_Login(t *testing.T) {
	f := newGatewayFixture(t)

	ts := time.Now().Unix()
	resp, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	require.NoError(t, err)
	assert.Len(t, resp.AuthToken, 32)
	assert.Greater(t, resp.ExpiresIn, int64(0))
	assert.Equal(t, 1, f.codeUpserts)
	assert.Equal(t, 0, f.account.TodayErrorCount)
}

func TestGatewayService_Login_BadSignature(t *testing.T) {
	f := newGatewayFixture(t)

	ts := time.Now().Unix()
	_, err := f.service.Login(context.Background(), "app-1", "alice", "deadbeef", ts, "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrInvalidCredential)
	assert.Equal(t, 1, f.account.TodayErrorCount)
	assert.Equal(t, 1, f.account.TotalErrorCount)
	assert.Equal(t, 0, f.codeUpserts)
}

func TestGatewayService_Login_StaleTimestamp(t *testing.T) {
	f := newGatewayFixture(t)

	ts := time.Now().Unix() - 301
	_, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrReplayRejected)
	assert.Equal(t, 0, f.account.TodayErrorCount, "a replayed request spends no failure budget")
}

func TestGatewayService_Login_TimestampAtWindowEdge(t *testing.T) {
	f := newGatewayFixture(t)

	ts := time.Now().Unix() - 299
	_, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	assert.NoError(t, err)
}

func TestGatewayService_Login_RestrictedAddress(t *testing.T) {
	f := newGatewayFixture(t)
	f.app.Restriction = models.ParseRestrictionPolicy("10.0.0.0/8")

	ts := time.Now().Unix()
	_, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrRestricted)
}

func TestGatewayService_Login_AllowedByRestriction(t *testing.T) {
	f := newGatewayFixture(t)
	f.app.Restriction = models.ParseRestrictionPolicy("10.0.0.0/8,203.0.113.9")

	ts := time.Now().Unix()
	_, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	assert.NoError(t, err)
}

func TestGatewayService_Login_UnknownAccount(t *testing.T) {
	f := newGatewayFixture(t)

	ts := time.Now().Unix()
	_, err := f.service.Login(context.Background(), "app-1", "mallory", f.sign(ts), ts, "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrInvalidCredential)
}

func TestGatewayService_Login_UnavailableAccount(t *testing.T) {
	f := newGatewayFixture(t)
	f.account.Available = false

	ts := time.Now().Unix()
	_, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrAccountUnavailable)
}

func TestGatewayService_Login_IncompleteProfile(t *testing.T) {
	f := newGatewayFixture(t)
	f.account.RealName = ""

	ts := time.Now().Unix()
	_, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrProfileIncomplete)
	assert.Equal(t, 0, f.codeUpserts, "no code issues for an incomplete profile")
	assert.Equal(t, 0, f.account.TodayErrorCount, "the signature itself was valid")
}

func TestGatewayService_Login_LockoutAfterTenFailures(t *testing.T) {
	f := newGatewayFixture(t)

	ts := time.Now().Unix()
	for i := 0; i < 10; i++ {
		_, err := f.service.Login(context.Background(), "app-1", "alice", "deadbeef", ts, "203.0.113.9")
		assert.ErrorIs(t, err, models.ErrInvalidCredential)
	}
	assert.Equal(t, 10, f.account.TodayErrorCount)

	// The eleventh attempt carries a valid signature and still fails.
	_, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Equal(t, 10, f.account.TodayErrorCount, "locked attempts spend no budget")
	assert.Equal(t, 0, f.codeUpserts)
}

func TestGatewayService_Login_LockoutExpiresWithTheDay(t *testing.T) {
	f := newGatewayFixture(t)
	f.account.TodayErrorCount = 10
	f.account.TotalErrorCount = 10
	f.account.LastErrorDate = time.Now().AddDate(0, 0, -1)

	ts := time.Now().Unix()
	resp, err := f.service.Login(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	require.NoError(t, err)
	assert.Len(t, resp.AuthToken, 32)
	assert.Equal(t, 0, f.account.TodayErrorCount)
	assert.Equal(t, 10, f.account.TotalErrorCount)
}

func TestGatewayService_Token_IncompleteProfileStillGrants(t *testing.T) {
	f := newGatewayFixture(t)
	f.account.RealName = ""

	ts := time.Now().Unix()
	resp, err := f.service.Token(context.Background(), "app-1", "alice", f.sign(ts), ts, "203.0.113.9")

	require.NoError(t, err)
	assert.Len(t, resp.AccessToken, 32)
	assert.Greater(t, resp.ExpiresIn, int64(0))
	assert.Equal(t, 1, f.grantUpserts)
}

func TestGatewayService_Authorize(t *testing.T) {
	f := newGatewayFixture(t)
	f.codes.GetByAppAndCodeFunc = func(ctx context.Context, appID, code string) (*models.AuthorizationCode, error) {
		if appID == "app-1" && code == "live-code" {
			return &models.AuthorizationCode{
				AccountID: "acc-1",
				AppID:     appID,
				Code:      code,
				ExpiresAt: time.Now().Add(time.Minute),
			}, nil
		}
		return nil, models.ErrNotFound
	}

	resp, err := f.service.Authorize(context.Background(), "app-1", "app-key-1", "live-code", "203.0.113.9")

	require.NoError(t, err)
	assert.Len(t, resp.AccessToken, 32)
	assert.Len(t, resp.RefreshToken, 32)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
	assert.Greater(t, resp.ExpiresIn, int64(0))
}

func TestGatewayService_Authorize_WrongAppKey(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.service.Authorize(context.Background(), "app-1", "wrong-key", "live-code", "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrInvalidCredential)
	assert.Equal(t, 0, f.grantUpserts)
}

func TestGatewayService_Authorize_UnknownCode(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.service.Authorize(context.Background(), "app-1", "app-key-1", "no-such-code", "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrInvalidCredential)
}

func TestGatewayService_Authorize_ExpiredCode(t *testing.T) {
	f := newGatewayFixture(t)
	f.codes.GetByAppAndCodeFunc = func(ctx context.Context, appID, code string) (*models.AuthorizationCode, error) {
		return &models.AuthorizationCode{
			AccountID: "acc-1",
			AppID:     appID,
			Code:      code,
			ExpiresAt: time.Now().Add(-time.Second),
		}, nil
	}

	_, err := f.service.Authorize(context.Background(), "app-1", "app-key-1", "stale-code", "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrExpired)
	assert.Equal(t, 0, f.grantUpserts)
}

func TestGatewayService_Authorize_RestrictedAddress(t *testing.T) {
	f := newGatewayFixture(t)
	f.app.Restriction = models.ParseRestrictionPolicy("192.0.2.0/24")

	_, err := f.service.Authorize(context.Background(), "app-1", "app-key-1", "live-code", "203.0.113.9")

	assert.ErrorIs(t, err, models.ErrRestricted)
}

func TestGatewayService_Refresh(t *testing.T) {
	f := newGatewayFixture(t)
	f.grants.RotateAccessTokenFunc = func(ctx context.Context, rt, newAccessToken string, expiresAt time.Time) (*models.AccessGrant, error) {
		if rt != "known-refresh" {
			return nil, models.ErrNotFound
		}
		return &models.AccessGrant{
			AccountID:    "acc-1",
			AppID:        "app-1",
			AccessToken:  newAccessToken,
			RefreshToken: rt,
			ExpiresAt:    expiresAt,
		}, nil
	}

	resp, err := f.service.Refresh(context.Background(), "known-refresh")

	require.NoError(t, err)
	assert.Len(t, resp.AccessToken, 32)
	assert.Greater(t, resp.ExpiresIn, int64(0))

	_, err = f.service.Refresh(context.Background(), "unknown-refresh")
	assert.ErrorIs(t, err, models.ErrInvalidAccess)
}

func TestGatewayService_UserInfo(t *testing.T) {
	f := newGatewayFixture(t)
	f.grants.GetByAccessTokenFunc = func(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
		if accessToken == "live-token" {
			return &models.AccessGrant{
				AccountID:   "acc-1",
				AppID:       "app-1",
				AccessToken: accessToken,
				ExpiresAt:   time.Now().Add(time.Hour),
			}, nil
		}
		return nil, models.ErrNotFound
	}

	info, err := f.service.UserInfo(context.Background(), "live-token")

	require.NoError(t, err)
	assert.Equal(t, "app-1", info.AppID)
	assert.Equal(t, f.account.OpenID, info.OpenID)
	assert.Equal(t, f.account.Nickname, info.NickName)
	assert.Equal(t, f.account.RealName, info.RealName)

	_, err = f.service.UserInfo(context.Background(), "dead-token")
	assert.ErrorIs(t, err, models.ErrInvalidAccess)
}

func TestGatewayService_UserInfo_ExpiredGrant(t *testing.T) {
	f := newGatewayFixture(t)
	f.grants.GetByAccessTokenFunc = func(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
		return &models.AccessGrant{
			AccountID:   "acc-1",
			AccessToken: accessToken,
			ExpiresAt:   time.Now().Add(-time.Second),
		}, nil
	}

	_, err := f.service.UserInfo(context.Background(), "stale-token")

	assert.ErrorIs(t, err, models.ErrInvalidAccess)
}

func TestGatewayService_FriendList(t *testing.T) {
	f := newGatewayFixture(t)
	f.grants.GetByAccessTokenFunc = func(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
		return &models.AccessGrant{
			AccountID:   "acc-1",
			AppID:       "app-1",
			AccessToken: accessToken,
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil
	}
	f.accounts.GetByOpenIDsFunc = func(ctx context.Context, openIDs []string) ([]*models.Account, error) {
		// "open-ghost" matches no account.
		return []*models.Account{f.account}, nil
	}

	friends, err := f.service.FriendList(context.Background(), "live-token", []string{"open-acc-1", "open-ghost"})

	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, f.account.OpenID, friends[0].OpenID)
	assert.Equal(t, f.account.Nickname, friends[0].NickName)
	assert.True(t, friends[0].Available)
}

func TestGatewayService_FriendList_EmptyOpens(t *testing.T) {
	f := newGatewayFixture(t)
	lookedUp := false
	f.grants.GetByAccessTokenFunc = func(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
		lookedUp = true
		return nil, models.ErrNotFound
	}

	_, err := f.service.FriendList(context.Background(), "any-token", nil)

	assert.ErrorIs(t, err, models.ErrEmptyOpens)
	assert.False(t, lookedUp, "the empty set fails before the token check")
}
