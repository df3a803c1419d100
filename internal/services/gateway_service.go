package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/jhalloran/linkgate/internal/auth"
	"github.com/jhalloran/linkgate/internal/models"
	pkglogger "github.com/jhalloran/linkgate/pkg/logger"
)

// AppResolver looks up Apps; satisfied by the repository or the
// read-through cache in front of it.
type AppResolver interface {
	GetByID(ctx context.Context, id string) (*models.App, error)
}

// AccountReader defines the account lookups the gateway needs.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByName(ctx context.Context, name string) (*models.Account, error)
	GetByOpenIDs(ctx context.Context, openIDs []string) ([]*models.Account, error)
}

// CodeIssuer is the authorization-code stage of the token machine.
type CodeIssuer interface {
	IssueOrRenew(ctx context.Context, accountID, appID string) (*models.AuthorizationCode, error)
	Lookup(ctx context.Context, appID, code string) (*models.AuthorizationCode, error)
}

// GrantIssuer is the access-grant stage of the token machine.
type GrantIssuer interface {
	IssueOrRenew(ctx context.Context, accountID, appID string) (*models.AccessGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AccessGrant, error)
	LookupByAccessToken(ctx context.Context, accessToken string) (*models.AccessGrant, error)
}

// LockoutTracker guards credentialed attempts with the per-account
// daily failure budget.
type LockoutTracker interface {
	CheckDailyReset(ctx context.Context, account *models.Account) error
	IsLocked(account *models.Account) bool
	RecordOutcome(ctx context.Context, account *models.Account, succeeded bool) error
}

// GatewayService sequences the per-action precondition chains. Every
// action is synchronous end-to-end; the first failing precondition
// stops the chain with a sentinel error and no further side effects
// beyond counters the lockout tracker already committed.
type GatewayService struct {
	apps            AppResolver
	accounts        AccountReader
	codes           CodeIssuer
	grants          GrantIssuer
	lockout         LockoutTracker
	scheme          auth.SignatureScheme
	replayTolerance int64 // seconds
	timing          *auth.TimingDelay
	logger          *slog.Logger
	auditLogger     *pkglogger.AuditLogger
}

// NewGatewayService creates a new GatewayService
func NewGatewayService(
	apps AppResolver,
	accounts AccountReader,
	codes CodeIssuer,
	grants GrantIssuer,
	lockout LockoutTracker,
	scheme auth.SignatureScheme,
	replayTolerance time.Duration,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *GatewayService {
	return &GatewayService{
		apps:            apps,
		accounts:        accounts,
		codes:           codes,
		grants:          grants,
		lockout:         lockout,
		scheme:          scheme,
		replayTolerance: int64(replayTolerance.Seconds()),
		timing:          timing,
		logger:          logger,
		auditLogger:     auditLogger,
	}
}

// Response DTOs

type AppInfoResponse struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Icon   string `json:"icon"`
}

type LoginResponse struct {
	AuthToken string `json:"auth_token"`
	ExpiresIn int64  `json:"expires_in"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AuthorizationResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type UserInfoResponse struct {
	AppID    string `json:"app_id"`
	OpenID   string `json:"open_id"`
	NickName string `json:"nick_name"`
	RealName string `json:"real_name"`
	Gender   int    `json:"gender"`
	Phone    string `json:"phone"`
}

type FriendResponse struct {
	OpenID    string `json:"open_id"`
	NickName  string `json:"nick_name"`
	RealName  string `json:"real_name"`
	Gender    int    `json:"gender"`
	Available bool   `json:"available"`
}

// AppInfo returns the public profile of a live App.
func (s *GatewayService) AppInfo(ctx context.Context, appID string) (*AppInfoResponse, error) {
	app, err := s.resolveApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	return &AppInfoResponse{
		Name:   app.Name,
		Domain: app.Domain,
		Icon:   app.IconURL,
	}, nil
}

// Login authenticates an account for an App and issues an
// authorization code. Requires a complete profile; the direct grant
// path does not, an asymmetry inherited from the protocol.
func (s *GatewayService) Login(ctx context.Context, appID, accountName, signature string, timestamp int64, callerAddr string) (*LoginResponse, error) {
	app, err := s.resolveApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	account, err := s.authenticate(ctx, app, accountName, signature, timestamp, callerAddr, "login")
	if err != nil {
		return nil, err
	}

	if !account.ProfileComplete() {
		return nil, models.ErrProfileIncomplete
	}

	code, err := s.codes.IssueOrRenew(ctx, account.ID, app.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AuthToken: code.Code,
		ExpiresIn: code.ExpiresIn(),
	}, nil
}

// Token authenticates an account for an App and issues the access
// grant directly, bypassing the code exchange.
func (s *GatewayService) Token(ctx context.Context, appID, accountName, signature string, timestamp int64, callerAddr string) (*TokenResponse, error) {
	app, err := s.resolveApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	account, err := s.authenticate(ctx, app, accountName, signature, timestamp, callerAddr, "token")
	if err != nil {
		return nil, err
	}

	grant, err := s.grants.IssueOrRenew(ctx, account.ID, app.ID)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: grant.AccessToken,
		ExpiresIn:   grant.ExpiresIn(),
	}, nil
}

// Authorize exchanges a live authorization code for an access grant.
// The App authenticates itself with its shared key; the code is not
// consumed, its expiry alone limits reuse.
func (s *GatewayService) Authorize(ctx context.Context, appID, appKey, authToken, callerAddr string) (*AuthorizationResponse, error) {
	app, err := s.resolveApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	if !app.Restriction.IsAllowed(callerAddr) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "authorization_failed",
			AppID:         app.ID,
			IPAddress:     callerAddr,
			FailureReason: "restricted_address",
		})
		return nil, models.ErrRestricted
	}

	if subtle.ConstantTimeCompare([]byte(appKey), []byte(app.Key)) != 1 {
		return nil, models.ErrInvalidCredential
	}

	code, err := s.codes.Lookup(ctx, app.ID, authToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredential
		}
		s.logger.Error("failed to look up authorization code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !code.IsAvailable() {
		return nil, models.ErrExpired
	}

	grant, err := s.grants.IssueOrRenew(ctx, code.AccountID, app.ID)
	if err != nil {
		return nil, err
	}

	if !grant.IsAvailable() {
		return nil, models.ErrInvalidAccess
	}

	return &AuthorizationResponse{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    grant.ExpiresIn(),
	}, nil
}

// Refresh rotates the access token for a refresh-token holder.
// Bearer-token action: no app or restriction re-check, by protocol.
func (s *GatewayService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	grant, err := s.grants.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: grant.AccessToken,
		ExpiresIn:   grant.ExpiresIn(),
	}, nil
}

// UserInfo returns the profile of the account behind a live access
// token.
func (s *GatewayService) UserInfo(ctx context.Context, accessToken string) (*UserInfoResponse, error) {
	grant, err := s.liveGrant(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, grant.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidAccess
		}
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &UserInfoResponse{
		AppID:    grant.AppID,
		OpenID:   account.OpenID,
		NickName: account.Nickname,
		RealName: account.RealName,
		Gender:   account.Gender,
		Phone:    account.Phone,
	}, nil
}

// FriendList resolves a caller-supplied set of open ids to account
// profiles. Unknown ids are dropped rather than erroring; an empty
// request set is a parameter error regardless of token validity.
func (s *GatewayService) FriendList(ctx context.Context, accessToken string, opens []string) ([]FriendResponse, error) {
	if len(opens) == 0 {
		return nil, models.ErrEmptyOpens
	}

	if _, err := s.liveGrant(ctx, accessToken); err != nil {
		return nil, err
	}

	accounts, err := s.accounts.GetByOpenIDs(ctx, opens)
	if err != nil {
		s.logger.Error("failed to look up accounts by open id", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	friends := make([]FriendResponse, 0, len(accounts))
	for _, account := range accounts {
		friends = append(friends, FriendResponse{
			OpenID:    account.OpenID,
			NickName:  account.Nickname,
			RealName:  account.RealName,
			Gender:    account.Gender,
			Available: account.Available,
		})
	}

	return friends, nil
}

// resolveApp finds a live App; deleted apps are indistinguishable
// from missing ones.
func (s *GatewayService) resolveApp(ctx context.Context, appID string) (*models.App, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up app", slog.String("app_id", appID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if app.Deleted {
		return nil, models.ErrNotFound
	}

	return app, nil
}

// authenticate runs the shared credentialed chain for Login and
// Token: restriction -> replay window -> account state -> daily
// reset -> lockout -> signature -> outcome.
func (s *GatewayService) authenticate(ctx context.Context, app *models.App, accountName, signature string, timestamp int64, callerAddr, action string) (*models.Account, error) {
	if !app.Restriction.IsAllowed(callerAddr) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     action + "_failed",
			AppID:         app.ID,
			IPAddress:     callerAddr,
			FailureReason: "restricted_address",
		})
		return nil, models.ErrRestricted
	}

	if !auth.WithinWindow(timestamp, time.Now().Unix(), s.replayTolerance) {
		return nil, models.ErrReplayRejected
	}

	account, err := s.accounts.GetByName(ctx, accountName)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Do not reveal whether the account exists.
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     action + "_failed",
				AppID:         app.ID,
				IPAddress:     callerAddr,
				FailureReason: "unknown_account",
			})
			return nil, models.ErrInvalidCredential
		}
		s.logger.Error("failed to look up account",
			slog.String("account", pkglogger.SanitizedAccountName(accountName)),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !account.Available {
		return nil, models.ErrAccountUnavailable
	}

	if err := s.lockout.CheckDailyReset(ctx, account); err != nil {
		return nil, err
	}

	// Reject before spending a signature check.
	if s.lockout.IsLocked(account) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     action + "_failed",
			AccountID:     account.ID,
			AppID:         app.ID,
			IPAddress:     callerAddr,
			FailureReason: "account_locked",
		})
		return nil, models.ErrAccountLocked
	}

	ok := s.scheme.Verify(accountName, account.Password, timestamp, signature)
	if s.timing != nil {
		s.timing.Wait(ok)
	}

	if err := s.lockout.RecordOutcome(ctx, account, ok); err != nil {
		return nil, err
	}

	if !ok {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     action + "_failed",
			AccountID:     account.ID,
			AppID:         app.ID,
			IPAddress:     callerAddr,
			FailureReason: "signature_mismatch",
		})
		return nil, models.ErrInvalidCredential
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: action + "_success",
		AccountID: account.ID,
		AppID:     app.ID,
		IPAddress: callerAddr,
		Success:   true,
	})

	return account, nil
}

// liveGrant looks up a grant by access token and requires it to be
// unexpired.
func (s *GatewayService) liveGrant(ctx context.Context, accessToken string) (*models.AccessGrant, error) {
	grant, err := s.grants.LookupByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidAccess
		}
		s.logger.Error("failed to look up access grant", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !grant.IsAvailable() {
		return nil, models.ErrInvalidAccess
	}

	return grant, nil
}
