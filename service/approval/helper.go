package approval

import (
	"context"
	"time"
)

// DecisionFunc decides what to do with a pending request name.
// Return (true,  "") to approve
//
//	(false, "…") to reject with reason.
type DecisionFunc func(name string) (approved bool, reason string)

// AutoDecider starts a goroutine that polls ListPending and applies fn to
// every pending record. It returns stop() – call it (or cancel ctx) to exit.
// Intended for tests and unattended runs; interactive deployments resolve
// records through Service.Resolve directly.
func AutoDecider(ctx context.Context, svc Service, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				names, _ := svc.ListPending(ctx)
				for _, name := range names {
					ok, reason := fn(name)
					_, _ = svc.Resolve(ctx, name, ok, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending requests.
func AutoApprove(ctx context.Context, svc Service, interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(string) (bool, string) { return true, "" }, interval)
}

// AutoReject automatically rejects all pending requests with the given reason.
func AutoReject(ctx context.Context, svc Service, reason string, interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(string) (bool, string) { return false, reason }, interval)
}
