// File: internal/browser/setup.go
package browser

import (
	"context"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pilot-cli/internal/config"
)

// setupTasks builds the CDP commands applied to a fresh tab before the first
// session action runs: the user agent override and any extra request headers.
func setupTasks(cfg config.BrowserConfig) chromedp.Tasks {
	var tasks chromedp.Tasks

	if cfg.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(cfg.UserAgent))
	}

	if len(cfg.ExtraHeaders) > 0 {
		headers := make(network.Headers, len(cfg.ExtraHeaders))
		for k, v := range cfg.ExtraHeaders {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}

	return tasks
}

// dismissDialogs installs a listener that accepts every JavaScript dialog the
// page raises. An unanswered alert or confirm blocks all further CDP commands
// on the target, which would hang an unattended session indefinitely.
func dismissDialogs(tabCtx context.Context, logger *zap.Logger) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		dialog, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}
		logger.Debug("Accepting JavaScript dialog.",
			zap.String("type", string(dialog.Type)),
			zap.String("message", dialog.Message))

		// The handler must not block the event loop, so the response is sent
		// from its own goroutine.
		go func() {
			if err := chromedp.Run(tabCtx, page.HandleJavaScriptDialog(true)); err != nil && tabCtx.Err() == nil {
				logger.Warn("Failed to respond to JavaScript dialog.", zap.Error(err))
			}
		}()
	})
}
