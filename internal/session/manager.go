// File: internal/session/manager.go
// Description: Owns the lifecycle of interaction sessions. It provisions the
// scoped resources for each session (page, vault, planner), runs the loop in
// the background, and answers status and cancel requests.

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/agent"
	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/llmclient"
	"github.com/xkilldash9x/pilot-cli/internal/vault"
)

// ErrEmptyCommand rejects a session request without a usable instruction.
var ErrEmptyCommand = errors.New("provide a valid command to execute")

// ErrTooManySessions rejects a session request while the concurrency cap is
// fully used.
var ErrTooManySessions = errors.New("maximum concurrent sessions reached")

// ClientFactory builds an LLM client for a provider. Injected so tests can
// substitute a scripted client.
type ClientFactory func(provider config.Provider, providerCfg config.ProviderConfig, limiter *rate.Limiter, logger *zap.Logger) (schemas.LLMClient, error)

// managedSession tracks one session from acceptance to retention expiry.
type managedSession struct {
	id        string
	agent     *agent.Agent
	createdAt time.Time
	cancel    context.CancelFunc

	mu         sync.RWMutex
	status     schemas.SessionStatus
	reason     schemas.TerminationReason
	finishedAt time.Time
}

func (s *managedSession) snapshot() (schemas.SessionStatus, schemas.TerminationReason, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.reason, s.finishedAt
}

func (s *managedSession) setResult(result agent.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = result.Status
	s.reason = result.Reason
	s.finishedAt = time.Now().UTC()
}

// Manager implements schemas.SessionService. Sessions are registered only
// after provisioning succeeds; a provisioning failure leaves no trace beyond
// the returned error.
type Manager struct {
	cfg     *config.Config
	logger  *zap.Logger
	browser schemas.BrowserManager
	factory ClientFactory

	// limiter is shared across sessions so concurrent loops respect one
	// provider-wide request budget.
	limiter *rate.Limiter

	clientMu sync.Mutex
	clients  map[config.Provider]schemas.LLMClient

	mu       sync.RWMutex
	sessions map[string]*managedSession

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

var _ schemas.SessionService = (*Manager)(nil)

// NewManager creates the session manager. A nil factory defaults to the real
// provider clients.
func NewManager(cfg *config.Config, browser schemas.BrowserManager, factory ClientFactory, logger *zap.Logger) (*Manager, error) {
	if cfg == nil || browser == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize session manager with nil dependencies")
	}
	if factory == nil {
		factory = func(provider config.Provider, providerCfg config.ProviderConfig, limiter *rate.Limiter, l *zap.Logger) (schemas.LLMClient, error) {
			return llmclient.NewClient(provider, providerCfg, limiter, l)
		}
	}

	maxConcurrent := int64(cfg.Session.MaxConcurrent)
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		logger:     logger.Named("session_manager"),
		browser:    browser,
		factory:    factory,
		limiter:    llmclient.NewLimiter(cfg.LLM),
		clients:    make(map[config.Provider]schemas.LLMClient),
		sessions:   make(map[string]*managedSession),
		sem:        semaphore.NewWeighted(maxConcurrent),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}, nil
}

// clientFor returns the cached client for a provider, building it on first
// use. Clients are stateless aside from their HTTP transport and are shared
// across sessions.
func (m *Manager) clientFor(provider config.Provider) (schemas.LLMClient, error) {
	m.clientMu.Lock()
	defer m.clientMu.Unlock()

	if client, ok := m.clients[provider]; ok {
		return client, nil
	}

	providerCfg, ok := m.cfg.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("no configuration for LLM provider %q", provider)
	}

	client, err := m.factory(provider, providerCfg, m.limiter, m.logger)
	if err != nil {
		return nil, err
	}
	m.clients[provider] = client
	return client, nil
}

// Start validates the request, provisions browser and provider resources,
// and launches the interaction loop in the background. The returned id can
// be polled immediately.
//
// Failures before the loop starts surface as *schemas.ProvisioningError
// (except validation and capacity errors) and leave no registered session.
func (m *Manager) Start(ctx context.Context, req schemas.StartSessionRequest) (string, error) {
	if strings.TrimSpace(req.Command) == "" {
		return "", ErrEmptyCommand
	}
	if err := m.baseCtx.Err(); err != nil {
		return "", fmt.Errorf("session manager is shut down: %w", err)
	}

	if !m.sem.TryAcquire(1) {
		return "", ErrTooManySessions
	}
	// Released by the session goroutine, or below on provisioning failure.

	m.prune()

	id := uuid.New().String()
	sessionLogger := m.logger.With(zap.String("session_id", id))

	provider := config.ProviderFor(req.Model)
	client, err := m.clientFor(provider)
	if err != nil {
		m.sem.Release(1)
		return "", schemas.NewProvisioningError(err)
	}

	page, err := m.browser.NewPage(ctx, id)
	if err != nil {
		m.sem.Release(1)
		return "", schemas.NewProvisioningError(err)
	}

	secrets := vault.New(req.Variables)
	planner := agent.NewPlanner(client, m.cfg.Agent.PlanAttempts, sessionLogger)
	executor := agent.NewExecutor(page, secrets, m.cfg.Browser, sessionLogger)
	loop := agent.NewAgent(id, req.Command, planner, executor, secrets, m.cfg.Agent, sessionLogger)

	sessCtx, sessCancel := context.WithCancel(m.baseCtx)
	sess := &managedSession{
		id:        id,
		agent:     loop,
		createdAt: time.Now().UTC(),
		cancel:    sessCancel,
		status:    schemas.StatusActive,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(sessCtx, sess, page)

	sessionLogger.Info("Session accepted.",
		zap.String("provider", client.Name()),
		zap.Int("variables", secrets.Len()))
	return id, nil
}

// run drives one session to completion and tears its page down exactly once.
func (m *Manager) run(ctx context.Context, sess *managedSession, page schemas.Page) {
	defer m.wg.Done()
	defer m.sem.Release(1)
	defer sess.cancel()
	defer func() {
		if err := page.Close(); err != nil {
			m.logger.Warn("Error closing session page.",
				zap.String("session_id", sess.id), zap.Error(err))
		}
	}()

	result := sess.agent.Run(ctx)
	sess.setResult(result)
}

// Status reports a session's current state and transcript.
func (m *Manager) Status(sessionID string) (schemas.SessionStatusResponse, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return schemas.SessionStatusResponse{}, schemas.ErrSessionNotFound
	}

	status, reason, _ := sess.snapshot()
	return schemas.SessionStatusResponse{
		SessionID:  sess.id,
		Status:     status,
		Reason:     reason,
		CreatedAt:  sess.createdAt,
		Transcript: sess.agent.Transcript().Snapshot(),
	}, nil
}

// Cancel requests a cooperative stop. Cancelling an already finished session
// is a no-op.
func (m *Manager) Cancel(sessionID string) error {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return schemas.ErrSessionNotFound
	}

	status, _, _ := sess.snapshot()
	if status.Terminal() {
		return nil
	}

	sess.agent.Cancel()
	m.logger.Info("Cancellation requested.", zap.String("session_id", sessionID))
	return nil
}

// prune drops finished sessions whose retention window has passed. Called on
// the Start path, which is the only place the session map grows.
func (m *Manager) prune() {
	retain := m.cfg.Session.RetainFinished
	if retain <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-retain)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		status, _, finishedAt := sess.snapshot()
		if status.Terminal() && !finishedAt.IsZero() && finishedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// Close hard-cancels every running loop and waits for them to drain, bounded
// by the caller's context.
func (m *Manager) Close(ctx context.Context) error {
	m.baseCancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions drained.")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for sessions to drain: %w", ctx.Err())
	}
}
