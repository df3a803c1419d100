package integration

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhalloran/linkgate/internal/auth"
	"github.com/jhalloran/linkgate/internal/models"
)

func signedForm(action string, app *models.App, account *models.Account, password string) url.Values {
	ts := time.Now().Unix()
	return url.Values{
		"action":    {action},
		"app_id":    {app.ID},
		"account":   {account.Name},
		"token":     {auth.LegacyScheme{}.Sign(account.Name, password, ts)},
		"timestamp": {strconv.FormatInt(ts, 10)},
	}
}

func TestGatewayIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	server := NewTestServer(db.DB)

	t.Run("login authorization refresh flow", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))
		app := SeedApp(t, server.Apps, "k1", "")
		account := SeedAccount(t, server.Accounts, "flow", "hunter2", "Real Name")

		// Login issues an authorization code.
		env := server.PostConnect(t, signedForm("Login", app, account, "hunter2"))
		require.NotNil(t, env.Code)
		require.Equal(t, 0, *env.Code)

		var login struct {
			AuthToken string `json:"auth_token"`
			ExpiresIn int64  `json:"expires_in"`
		}
		env.DecodeData(t, &login)
		require.Len(t, login.AuthToken, 32)
		assert.Greater(t, login.ExpiresIn, int64(0))

		// The App exchanges the code for a grant.
		env = server.PostConnect(t, url.Values{
			"action":     {"Authorization"},
			"app_id":     {app.ID},
			"app_key":    {"k1"},
			"auth_token": {login.AuthToken},
		})
		require.NotNil(t, env.Code)
		require.Equal(t, 0, *env.Code)

		var grant struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		env.DecodeData(t, &grant)
		require.Len(t, grant.AccessToken, 32)
		require.Len(t, grant.RefreshToken, 32)

		// Refresh rotates the access token only.
		env = server.PostConnect(t, url.Values{
			"action":        {"Refresh"},
			"refresh_token": {grant.RefreshToken},
		})
		require.NotNil(t, env.Code)
		require.Equal(t, 0, *env.Code)

		var refreshed struct {
			AccessToken string `json:"access_token"`
		}
		env.DecodeData(t, &refreshed)
		assert.NotEqual(t, grant.AccessToken, refreshed.AccessToken)

		stored, err := server.Grants.GetByAccessToken(ctx, refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, grant.RefreshToken, stored.RefreshToken)

		// The rotated token serves the profile.
		env = server.PostConnect(t, url.Values{
			"action":       {"UserInfo"},
			"access_token": {refreshed.AccessToken},
		})
		require.NotNil(t, env.Result)
		require.True(t, *env.Result)

		var profile struct {
			OpenID   string `json:"open_id"`
			RealName string `json:"real_name"`
		}
		env.DecodeData(t, &profile)
		assert.Equal(t, account.OpenID, profile.OpenID)
		assert.Equal(t, "Real Name", profile.RealName)
	})

	t.Run("repeated authorization keeps one grant row", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))
		app := SeedApp(t, server.Apps, "k1", "")
		account := SeedAccount(t, server.Accounts, "upsert", "hunter2", "Real Name")

		env := server.PostConnect(t, signedForm("Login", app, account, "hunter2"))
		require.NotNil(t, env.Code)
		require.Equal(t, 0, *env.Code)

		var login struct {
			AuthToken string `json:"auth_token"`
		}
		env.DecodeData(t, &login)

		exchange := url.Values{
			"action":     {"Authorization"},
			"app_id":     {app.ID},
			"app_key":    {"k1"},
			"auth_token": {login.AuthToken},
		}

		first := server.PostConnect(t, exchange)
		require.Equal(t, 0, *first.Code)
		second := server.PostConnect(t, exchange)
		require.Equal(t, 0, *second.Code)

		count, err := server.Grants.CountByPair(ctx, account.ID, app.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("lockout after ten failed logins", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))
		app := SeedApp(t, server.Apps, "k1", "")
		account := SeedAccount(t, server.Accounts, "lockout", "hunter2", "Real Name")

		bad := signedForm("Login", app, account, "hunter2")
		bad.Set("token", "deadbeefdeadbeefdeadbeefdeadbeef")

		for i := 0; i < 10; i++ {
			env := server.PostConnect(t, bad)
			require.NotNil(t, env.Code)
			assert.Equal(t, 3, *env.Code)
		}

		// The eleventh attempt carries a valid signature and is still
		// rejected.
		env := server.PostConnect(t, signedForm("Login", app, account, "hunter2"))
		require.NotNil(t, env.Code)
		assert.Equal(t, 2, *env.Code)

		stored, err := server.Accounts.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, stored.TodayErrorCount)
		assert.Equal(t, 10, stored.TotalErrorCount)
	})

	t.Run("login with incomplete profile issues nothing", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))
		app := SeedApp(t, server.Apps, "k1", "")
		account := SeedAccount(t, server.Accounts, "incomplete", "hunter2", "")

		env := server.PostConnect(t, signedForm("Login", app, account, "hunter2"))
		require.NotNil(t, env.Code)
		assert.Equal(t, 5, *env.Code)

		var count int
		require.NoError(t, db.Pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM authorization_codes WHERE account_id = $1", account.ID).Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("friend list resolves only known open ids", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))
		app := SeedApp(t, server.Apps, "k1", "")
		account := SeedAccount(t, server.Accounts, "caller", "hunter2", "Real Name")
		friend := SeedAccount(t, server.Accounts, "friend", "s3cr3t", "Friend Name")

		env := server.PostConnect(t, signedForm("Token", app, account, "hunter2"))
		require.NotNil(t, env.Code)
		require.Equal(t, 0, *env.Code)

		var token struct {
			AccessToken string `json:"access_token"`
		}
		env.DecodeData(t, &token)

		env = server.PostConnect(t, url.Values{
			"action":       {"FriendList"},
			"access_token": {token.AccessToken},
			"opens":        {`["` + friend.OpenID + `","no-such-open-id"]`},
		})
		require.NotNil(t, env.Result)
		require.True(t, *env.Result)

		var friends []struct {
			OpenID   string `json:"open_id"`
			NickName string `json:"nick_name"`
		}
		env.DecodeData(t, &friends)
		require.Len(t, friends, 1)
		assert.Equal(t, friend.OpenID, friends[0].OpenID)
	})

	t.Run("restricted app rejects the caller", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))
		app := SeedApp(t, server.Apps, "k1", "10.0.0.0/8")
		account := SeedAccount(t, server.Accounts, "restricted", "hunter2", "Real Name")

		env := server.PostConnect(t, signedForm("Login", app, account, "hunter2"))
		require.NotNil(t, env.Code)
		assert.Equal(t, 2, *env.Code)
	})
}
