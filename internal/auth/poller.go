package auth

import (
	"context"
	"log/slog"
	"time"
)

// Poller periodically invalidates the auth state so upstream session expiry
// is noticed without a login or logout.
type Poller struct {
	state    Invalidator
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller constructs a Poller. A non-positive interval disables it.
func NewPoller(state Invalidator, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{state: state, interval: interval, logger: logger}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if p == nil || p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	if p.logger != nil {
		p.logger.Info("session poller started", slog.Duration("interval", p.interval))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.state.Invalidate()
		}
	}
}
