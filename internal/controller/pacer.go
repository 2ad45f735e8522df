package controller

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer yields between detection cycles. Wait returns when the next cycle
// may start, or with ctx's error.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RatePacer allows at most fps cycles per second.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer returns a pacer for fps cycles per second. fps <= 0 means one per second.
func NewRatePacer(fps int) *RatePacer {
	if fps <= 0 {
		fps = 1
	}
	return &RatePacer{limiter: rate.NewLimiter(rate.Limit(fps), 1)}
}

// Wait blocks until the next cycle slot.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// SetFPS changes the cadence; it takes effect from the next Wait.
func (p *RatePacer) SetFPS(fps int) {
	if fps <= 0 {
		fps = 1
	}
	p.limiter.SetLimit(rate.Limit(fps))
}
