// Package session holds the single office credential, persists it for
// "remember me", and gates every office API call.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/office-portal/internal/observability/metrics"
	"github.com/wolfman30/office-portal/internal/officeapi"
	"github.com/wolfman30/office-portal/internal/validation"
	"github.com/wolfman30/office-portal/pkg/logging"
)

var (
	// ErrLoginFailed wraps every login failure cause.
	ErrLoginFailed = errors.New("session: login failed")
	// ErrNoStoredCredential means Restore found nothing to restore.
	ErrNoStoredCredential = errors.New("session: no stored credential")
	// ErrSessionExpired is delivered when a restored credential fails verification.
	ErrSessionExpired = errors.New("session: session expired, please sign in again")
)

// State is the session lifecycle position.
type State string

const (
	StateSignedOut  State = "signed_out"
	StateTentative  State = "tentative"
	StateAuthorized State = "authorized"
)

// Verifier performs the credential verification call.
type Verifier interface {
	Verify(ctx context.Context, credential string) error
}

// Manager owns the credential. It is either fully authorized (possibly
// tentatively, right after Restore) or fully cleared.
type Manager struct {
	verifier Verifier
	store    CredentialStore
	logger   *logging.Logger
	metrics  *metrics.PortalMetrics

	mu         sync.RWMutex
	credential string
	state      State
	epoch      uint64
	listeners  []func(State)
}

// NewManager constructs a signed-out manager.
func NewManager(verifier Verifier, store CredentialStore, logger *logging.Logger, m *metrics.PortalMetrics) *Manager {
	if verifier == nil {
		panic("session: verifier required")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		verifier: verifier,
		store:    store,
		logger:   logger,
		metrics:  m,
		state:    StateSignedOut,
	}
}

// OnChange registers fn to be called after every state transition.
func (m *Manager) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Credential implements officeapi.CredentialSource.
func (m *Manager) Credential() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == StateSignedOut || m.credential == "" {
		return "", false
	}
	return m.credential, true
}

// Login verifies user/pass with one verification call. Any failure leaves the
// session fully cleared.
func (m *Manager) Login(ctx context.Context, user, pass string, remember bool) error {
	epoch := m.transition(StateSignedOut, "")
	user = strings.TrimSpace(user)
	if user == "" {
		return fmt.Errorf("%w: %w", ErrLoginFailed, validation.New("user", "office user is required"))
	}
	if pass == "" {
		return fmt.Errorf("%w: %w", ErrLoginFailed, validation.New("password", "office password is required"))
	}

	candidate := officeapi.BasicCredential(user, pass)

	if err := m.verifier.Verify(ctx, candidate); err != nil {
		m.metrics.ObserveSession("login_failed")
		m.logger.Warn("office login failed", "user", user, "error", err)
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	if !m.transitionAt(epoch, StateAuthorized, candidate) {
		return fmt.Errorf("%w: superseded by another session change", ErrLoginFailed)
	}
	if remember {
		if err := m.store.Save(ctx, candidate); err != nil {
			m.logger.Warn("failed to remember credential", "error", err)
		}
	} else if err := m.store.Delete(ctx); err != nil {
		m.logger.Warn("failed to clear remembered credential", "error", err)
	}
	m.metrics.ObserveSession("login")
	m.logger.Info("office login succeeded", "user", user, "remember", remember)
	return nil
}

// Restore is a two-phase protocol. It loads the remembered credential and
// immediately enters StateTentative so callers can render an authorized
// view, then verifies in the background. The returned channel yields nil
// once verified, or ErrSessionExpired after the session has been cleared.
// A login or logout in the meantime wins over the pending verification.
func (m *Manager) Restore(ctx context.Context) (<-chan error, error) {
	credential, ok, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoStoredCredential
	}
	epoch := m.transition(StateTentative, credential)
	m.metrics.ObserveSession("restore")

	result := make(chan error, 1)
	go func() {
		defer close(result)
		verifyErr := m.verifier.Verify(ctx, credential)

		if verifyErr == nil {
			m.transitionAt(epoch, StateAuthorized, credential)
			result <- nil
			return
		}

		if m.transitionAt(epoch, StateSignedOut, "") {
			if err := m.store.Delete(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to clear expired credential", "error", err)
			}
			m.metrics.ObserveSession("expired")
			m.logger.Info("restored session failed verification", "error", verifyErr)
		}
		result <- fmt.Errorf("%w: %w", ErrSessionExpired, verifyErr)
	}()
	return result, nil
}

// Logout clears the credential and the remembered copy. It is idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	m.transition(StateSignedOut, "")
	m.metrics.ObserveSession("logout")
	if err := m.store.Delete(ctx); err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

// Invalidate implements officeapi.CredentialSource: a 401 anywhere tears the
// whole session down, including the remembered copy.
func (m *Manager) Invalidate() {
	if m.State() == StateSignedOut {
		return
	}
	m.transition(StateSignedOut, "")
	m.metrics.ObserveSession("unauthorized")
	if err := m.store.Delete(context.Background()); err != nil {
		m.logger.Warn("failed to clear remembered credential after 401", "error", err)
	}
	m.logger.Warn("session invalidated by 401 response")
}

func (m *Manager) transition(state State, credential string) uint64 {
	m.mu.Lock()
	listeners, changed := m.applyLocked(state, credential)
	epoch := m.epoch
	m.mu.Unlock()
	if changed {
		notify(listeners, state)
	}
	return epoch
}

// transitionAt applies the transition only while epoch is still current.
func (m *Manager) transitionAt(epoch uint64, state State, credential string) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	listeners, changed := m.applyLocked(state, credential)
	m.mu.Unlock()
	if changed {
		notify(listeners, state)
	}
	return true
}

// applyLocked mutates state; every move away from authorized starts a new epoch.
func (m *Manager) applyLocked(state State, credential string) ([]func(State), bool) {
	changed := m.state != state || m.credential != credential
	m.state = state
	m.credential = credential
	if state != StateAuthorized {
		m.epoch++
	}
	return append(([]func(State))(nil), m.listeners...), changed
}

func notify(listeners []func(State), state State) {
	for _, fn := range listeners {
		fn(state)
	}
}
