package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	appconfig "github.com/wolfman30/office-portal/internal/config"
	"github.com/wolfman30/office-portal/internal/dashboard"
	"github.com/wolfman30/office-portal/internal/messaging"
	"github.com/wolfman30/office-portal/internal/observability/metrics"
	"github.com/wolfman30/office-portal/internal/officeapi"
	"github.com/wolfman30/office-portal/internal/session"
	"github.com/wolfman30/office-portal/pkg/logging"
)

// Engine is the wired office client, session, dashboard and messaging set.
type Engine struct {
	Client   *officeapi.Client
	Sessions *session.Manager
	Board    *dashboard.Dashboard
	Messages *messaging.Service
}

// EngineOptions overrides pieces of the engine, mostly for tests.
type EngineOptions struct {
	HTTPClient *http.Client
	Clock      func() time.Time
	Location   *time.Location
}

// BuildEngine wires the office API client to the session manager and the
// dashboard. Signing out for any reason clears the dashboard.
func BuildEngine(cfg *appconfig.Config, store session.CredentialStore, logger *logging.Logger, m *metrics.PortalMetrics, opts EngineOptions) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("bootstrap: credential store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	creds := &managerCredentials{}
	client, err := officeapi.New(officeapi.Config{
		BaseURL:    cfg.OfficeAPIBaseURL,
		Timeout:    cfg.OfficeAPITimeout,
		HTTPClient: opts.HTTPClient,
		Logger:     logger,
		Metrics:    m,
	}, creds)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: office client: %w", err)
	}
	mgr := session.NewManager(client, store, logger, m)
	creds.manager = mgr

	loc := opts.Location
	if loc == nil {
		loc = cfg.Location()
	}
	board := dashboard.New(client, dashboard.Options{
		PageSize:         cfg.BookingPageSize,
		DefaultRangeDays: cfg.DefaultRangeDays,
		Location:         loc,
		Clock:            opts.Clock,
		Logger:           logger,
		Metrics:          m,
	})
	mgr.OnChange(func(state session.State) {
		if state == session.StateSignedOut {
			board.Reset()
		}
	})

	return &Engine{
		Client:   client,
		Sessions: mgr,
		Board:    board,
		Messages: messaging.NewService(client, board, logger, m),
	}, nil
}

// managerCredentials lets the client be built before the manager that
// verifies through it.
type managerCredentials struct {
	manager *session.Manager
}

func (c *managerCredentials) Credential() (string, bool) {
	if c.manager == nil {
		return "", false
	}
	return c.manager.Credential()
}

func (c *managerCredentials) Invalidate() {
	if c.manager != nil {
		c.manager.Invalidate()
	}
}
