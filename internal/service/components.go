// File: internal/service/components.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pilot-cli/internal/browser"
	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/session"
)

// componentsShutdownTimeout bounds the whole teardown so a wedged loop or
// browser process cannot hang process exit.
const componentsShutdownTimeout = 30 * time.Second

// Components holds the long-lived services behind the HTTP shell and the
// one-shot runner. The struct centralizes lifecycle management so shutdown
// happens in dependency order.
type Components struct {
	BrowserManager *browser.Manager
	Sessions       *session.Manager

	logger *zap.Logger
}

// NewComponents wires the browser manager and the session manager from the
// given configuration. The browser process itself launches lazily on the
// first page request.
func NewComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	browserManager := browser.NewManager(cfg.Browser, logger)

	sessions, err := session.NewManager(cfg, browserManager, nil, logger)
	if err != nil {
		return nil, err
	}

	return &Components{
		BrowserManager: browserManager,
		Sessions:       sessions,
		logger:         logger.Named("components"),
	}, nil
}

// Shutdown stops components in reverse dependency order: first the session
// loops, which produce browser work, then the browser process itself.
func (c *Components) Shutdown() {
	c.logger.Debug("Beginning components shutdown sequence.")

	ctx, cancel := context.WithTimeout(context.Background(), componentsShutdownTimeout)
	defer cancel()

	if c.Sessions != nil {
		if err := c.Sessions.Close(ctx); err != nil {
			c.logger.Warn("Error draining sessions during shutdown.", zap.Error(err))
		} else {
			c.logger.Debug("Session manager drained.")
		}
	}

	if c.BrowserManager != nil {
		if err := c.BrowserManager.Shutdown(ctx); err != nil {
			c.logger.Warn("Error during browser manager shutdown.", zap.Error(err))
		} else {
			c.logger.Debug("Browser manager shut down.")
		}
	}

	c.logger.Info("All components shut down.")
}
