package negotiation

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically sweeps pending negotiations past their deadline to
// expired. Expiry is also enforced actively on every respond and cancel, so
// the sweep only bounds how long a stale record lingers for pollers.
type Reaper struct {
	service  *Service
	interval time.Duration
}

// NewReaper creates a new expiry reaper
func NewReaper(service *Service, interval time.Duration) *Reaper {
	return &Reaper{service: service, interval: interval}
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := r.service.ExpireDue(ctx)
			if err != nil {
				slog.Error("failed to sweep expired negotiations", "error", err)
				continue
			}
			if swept > 0 {
				slog.Debug("swept expired negotiations", "count", swept)
			}
		}
	}
}
