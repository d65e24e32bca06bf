// File: internal/browser/context.go
package browser

import "context"

// CombineContext derives a context from ctx1 that is canceled when either
// ctx1 or ctx2 ends. chromedp contexts carry the CDP target in their values,
// so the combined context must descend from the page context (ctx1) while
// still observing the operational deadline (ctx2).
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
