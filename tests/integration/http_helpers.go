package integration

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhalloran/linkgate/internal/auth"
	"github.com/jhalloran/linkgate/internal/cache"
	"github.com/jhalloran/linkgate/internal/database"
	"github.com/jhalloran/linkgate/internal/handlers"
	"github.com/jhalloran/linkgate/internal/metrics"
	"github.com/jhalloran/linkgate/internal/repositories"
	"github.com/jhalloran/linkgate/internal/routes"
	"github.com/jhalloran/linkgate/internal/services"
	pkghttp "github.com/jhalloran/linkgate/pkg/http"
	pkglogger "github.com/jhalloran/linkgate/pkg/logger"
)

// TestServer wires the full gateway stack over a test database.
type TestServer struct {
	Router chi.Router

	Apps     *repositories.AppRepository
	Accounts *repositories.AccountRepository
	Codes    *repositories.AuthCodeRepository
	Grants   *repositories.AccessGrantRepository
}

// NewTestServer builds the production wiring against db, with the
// legacy signature scheme and no timing delay.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger)

	appRepo, accountRepo, codeRepo, grantRepo := InitializeRepositories(db)

	appCache := cache.NewAppCache(appRepo, 5*time.Second)

	lockoutService := services.NewLockoutService(accountRepo, 10, logger, auditLogger)
	codeService := services.NewCodeService(codeRepo, 2*time.Minute, logger, auditLogger)
	grantService := services.NewGrantService(grantRepo, 2*time.Hour, logger, auditLogger)

	gatewayService := services.NewGatewayService(
		appCache,
		accountRepo,
		codeService,
		grantService,
		lockoutService,
		auth.LegacyScheme{},
		5*time.Minute,
		nil,
		logger,
		auditLogger,
	)

	promRegistry := prometheus.NewRegistry()
	connectHandler := handlers.NewConnectHandler(
		gatewayService,
		pkghttp.NewIPConfig(nil),
		metrics.New(promRegistry),
	)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	routes.RegisterRoutes(router, connectHandler, promRegistry, 10000, time.Minute)

	return &TestServer{
		Router:   router,
		Apps:     appRepo,
		Accounts: accountRepo,
		Codes:    codeRepo,
		Grants:   grantRepo,
	}
}

// Envelope is the decoded protocol response; exactly one of Code or
// Result is meaningful depending on the action's envelope shape.
type Envelope struct {
	Code   *int            `json:"code"`
	Result *bool           `json:"result"`
	Data   json.RawMessage `json:"data"`
}

// PostConnect submits one action as a form post and decodes the
// envelope.
func (ts *TestServer) PostConnect(t *testing.T, form url.Values) Envelope {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/connect", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "203.0.113.9:40000"

	rr := httptest.NewRecorder()
	ts.Router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected HTTP status %d: %s", rr.Code, rr.Body.String())
	}

	var envelope Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v (%s)", err, rr.Body.String())
	}
	return envelope
}

// DecodeData unmarshals the envelope payload into out.
func (e Envelope) DecodeData(t *testing.T, out interface{}) {
	t.Helper()

	if err := json.Unmarshal(e.Data, out); err != nil {
		t.Fatalf("failed to decode payload: %v (%s)", err, string(e.Data))
	}
}
