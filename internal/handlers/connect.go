package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jhalloran/linkgate/internal/metrics"
	"github.com/jhalloran/linkgate/internal/models"
	"github.com/jhalloran/linkgate/internal/services"
	pkghttp "github.com/jhalloran/linkgate/pkg/http"
)

// GatewayInterface defines the gateway business logic consumed by the
// connect endpoint.
type GatewayInterface interface {
	AppInfo(ctx context.Context, appID string) (*services.AppInfoResponse, error)
	Login(ctx context.Context, appID, accountName, signature string, timestamp int64, callerAddr string) (*services.LoginResponse, error)
	Token(ctx context.Context, appID, accountName, signature string, timestamp int64, callerAddr string) (*services.TokenResponse, error)
	Authorize(ctx context.Context, appID, appKey, authToken, callerAddr string) (*services.AuthorizationResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenResponse, error)
	UserInfo(ctx context.Context, accessToken string) (*services.UserInfoResponse, error)
	FriendList(ctx context.Context, accessToken string, opens []string) ([]services.FriendResponse, error)
}

// Wire action names.
const (
	ActionAppInfo       = "AppInfo"
	ActionLogin         = "Login"
	ActionToken         = "Token"
	ActionAuthorization = "Authorization"
	ActionRefresh       = "Refresh"
	ActionUserInfo      = "UserInfo"
	ActionFriendList    = "FriendList"
)

type actionFunc func(w http.ResponseWriter, r *http.Request)

// ConnectHandler serves every protocol action from a single endpoint.
// Dispatch runs over a closed registry built at construction; an
// action name outside the map is rejected without introspection.
type ConnectHandler struct {
	gateway  GatewayInterface
	ipConfig *pkghttp.IPConfig
	metrics  *metrics.Metrics
	actions  map[string]actionFunc
}

// NewConnectHandler creates a new ConnectHandler
func NewConnectHandler(gateway GatewayInterface, ipConfig *pkghttp.IPConfig, m *metrics.Metrics) *ConnectHandler {
	h := &ConnectHandler{
		gateway:  gateway,
		ipConfig: ipConfig,
		metrics:  m,
	}

	h.actions = map[string]actionFunc{
		ActionAppInfo:       h.appInfo,
		ActionLogin:         h.login,
		ActionToken:         h.token,
		ActionAuthorization: h.authorization,
		ActionRefresh:       h.refresh,
		ActionUserInfo:      h.userInfo,
		ActionFriendList:    h.friendList,
	}

	return h
}

// Request DTOs

type appInfoRequest struct {
	AppID string `validate:"required"`
}

// credentialRequest carries the signed-request fields shared by Login
// and Token.
type credentialRequest struct {
	AppID     string `validate:"required"`
	Account   string `validate:"required"`
	Token     string `validate:"required"`
	Timestamp string `validate:"required"`
}

type authorizationRequest struct {
	AppID     string `validate:"required"`
	AppKey    string `validate:"required"`
	AuthToken string `validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `validate:"required"`
}

type accessTokenRequest struct {
	AccessToken string `validate:"required"`
}

type friendListRequest struct {
	AccessToken string `validate:"required"`
	Opens       string `validate:"required"`
}

// Connect handles every action of the integration protocol
// @Summary Protocol entry point
// @Accept x-www-form-urlencoded
// @Param action formData string true "Action name"
// @Produce json
// @Router /connect [post]
func (h *ConnectHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.metrics.RecordAction("malformed", metrics.OutcomeFailure)
		writeCodeEnvelope(w, CodeInvalidParam, "invalid form data")
		return
	}

	name := r.PostFormValue("action")
	action, ok := h.actions[name]
	if !ok {
		h.metrics.RecordAction("unknown", metrics.OutcomeFailure)
		writeCodeEnvelope(w, CodeInvalidAction, "invalid action")
		return
	}

	action(w, r)
}

func (h *ConnectHandler) appInfo(w http.ResponseWriter, r *http.Request) {
	req := appInfoRequest{AppID: r.PostFormValue("app_id")}
	if err := ValidateRequest(req); err != nil {
		h.metrics.RecordAction(ActionAppInfo, metrics.OutcomeFailure)
		writeBooleanEnvelope(w, false, err.Error())
		return
	}

	info, err := h.gateway.AppInfo(r.Context(), req.AppID)
	if err != nil {
		h.failBoolean(w, ActionAppInfo, err)
		return
	}

	h.metrics.RecordAction(ActionAppInfo, metrics.OutcomeSuccess)
	writeBooleanEnvelope(w, true, info)
}

func (h *ConnectHandler) login(w http.ResponseWriter, r *http.Request) {
	req, timestamp, err := h.credentialFields(r)
	if err != nil {
		h.metrics.RecordAction(ActionLogin, metrics.OutcomeFailure)
		writeCodeEnvelope(w, CodeInvalidParam, err.Error())
		return
	}

	resp, err := h.gateway.Login(r.Context(), req.AppID, req.Account, req.Token, timestamp, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		h.failCode(w, ActionLogin, err)
		return
	}

	h.metrics.RecordAction(ActionLogin, metrics.OutcomeSuccess)
	writeCodeEnvelope(w, CodeSuccess, resp)
}

func (h *ConnectHandler) token(w http.ResponseWriter, r *http.Request) {
	req, timestamp, err := h.credentialFields(r)
	if err != nil {
		h.metrics.RecordAction(ActionToken, metrics.OutcomeFailure)
		writeCodeEnvelope(w, CodeInvalidParam, err.Error())
		return
	}

	resp, err := h.gateway.Token(r.Context(), req.AppID, req.Account, req.Token, timestamp, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		h.failCode(w, ActionToken, err)
		return
	}

	h.metrics.RecordAction(ActionToken, metrics.OutcomeSuccess)
	writeCodeEnvelope(w, CodeSuccess, resp)
}

func (h *ConnectHandler) authorization(w http.ResponseWriter, r *http.Request) {
	req := authorizationRequest{
		AppID:     r.PostFormValue("app_id"),
		AppKey:    r.PostFormValue("app_key"),
		AuthToken: r.PostFormValue("auth_token"),
	}
	if err := ValidateRequest(req); err != nil {
		h.metrics.RecordAction(ActionAuthorization, metrics.OutcomeFailure)
		writeCodeEnvelope(w, CodeInvalidParam, err.Error())
		return
	}

	resp, err := h.gateway.Authorize(r.Context(), req.AppID, req.AppKey, req.AuthToken, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		h.failCode(w, ActionAuthorization, err)
		return
	}

	h.metrics.RecordAction(ActionAuthorization, metrics.OutcomeSuccess)
	writeCodeEnvelope(w, CodeSuccess, resp)
}

func (h *ConnectHandler) refresh(w http.ResponseWriter, r *http.Request) {
	req := refreshRequest{RefreshToken: r.PostFormValue("refresh_token")}
	if err := ValidateRequest(req); err != nil {
		h.metrics.RecordAction(ActionRefresh, metrics.OutcomeFailure)
		writeCodeEnvelope(w, CodeInvalidParam, err.Error())
		return
	}

	resp, err := h.gateway.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.failCode(w, ActionRefresh, err)
		return
	}

	h.metrics.RecordAction(ActionRefresh, metrics.OutcomeSuccess)
	writeCodeEnvelope(w, CodeSuccess, resp)
}

func (h *ConnectHandler) userInfo(w http.ResponseWriter, r *http.Request) {
	req := accessTokenRequest{AccessToken: r.PostFormValue("access_token")}
	if err := ValidateRequest(req); err != nil {
		h.metrics.RecordAction(ActionUserInfo, metrics.OutcomeFailure)
		writeBooleanEnvelope(w, false, err.Error())
		return
	}

	info, err := h.gateway.UserInfo(r.Context(), req.AccessToken)
	if err != nil {
		h.failBoolean(w, ActionUserInfo, err)
		return
	}

	h.metrics.RecordAction(ActionUserInfo, metrics.OutcomeSuccess)
	writeBooleanEnvelope(w, true, info)
}

func (h *ConnectHandler) friendList(w http.ResponseWriter, r *http.Request) {
	req := friendListRequest{
		AccessToken: r.PostFormValue("access_token"),
		Opens:       r.PostFormValue("opens"),
	}
	if err := ValidateRequest(req); err != nil {
		h.metrics.RecordAction(ActionFriendList, metrics.OutcomeFailure)
		writeBooleanEnvelope(w, false, err.Error())
		return
	}

	var opens []string
	if err := json.Unmarshal([]byte(req.Opens), &opens); err != nil {
		h.metrics.RecordAction(ActionFriendList, metrics.OutcomeFailure)
		writeBooleanEnvelope(w, false, "opens must be a JSON array of open ids")
		return
	}

	friends, err := h.gateway.FriendList(r.Context(), req.AccessToken, opens)
	if err != nil {
		h.failBoolean(w, ActionFriendList, err)
		return
	}

	h.metrics.RecordAction(ActionFriendList, metrics.OutcomeSuccess)
	writeBooleanEnvelope(w, true, friends)
}

// credentialFields extracts and validates the shared Login/Token
// request fields and parses the timestamp.
func (h *ConnectHandler) credentialFields(r *http.Request) (credentialRequest, int64, error) {
	req := credentialRequest{
		AppID:     r.PostFormValue("app_id"),
		Account:   r.PostFormValue("account"),
		Token:     r.PostFormValue("token"),
		Timestamp: r.PostFormValue("timestamp"),
	}
	if err := ValidateRequest(req); err != nil {
		return req, 0, err
	}

	timestamp, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		return req, 0, errors.New("timestamp must be an integer")
	}

	return req, timestamp, nil
}

func (h *ConnectHandler) failCode(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, models.ErrAccountLocked) {
		h.metrics.RecordLockout()
	}

	code, message := codeForError(err)
	outcome := metrics.OutcomeFailure
	if code == CodeServerError {
		outcome = metrics.OutcomeError
	}
	h.metrics.RecordAction(action, outcome)
	writeCodeEnvelope(w, code, message)
}

func (h *ConnectHandler) failBoolean(w http.ResponseWriter, action string, err error) {
	outcome := metrics.OutcomeFailure
	if code, _ := codeForError(err); code == CodeServerError {
		outcome = metrics.OutcomeError
	}
	h.metrics.RecordAction(action, outcome)
	writeBooleanEnvelope(w, false, messageForError(err))
}
