package notify

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

// RateLimited paces another Notifier with a token bucket. Callers block
// until a token is available or ctx is done.
type RateLimited struct {
	next    Notifier
	limiter *rate.Limiter
}

var _ Notifier = (*RateLimited)(nil)

// NewRateLimited allows perSecond alerts per second with the given burst.
// A non-positive perSecond disables pacing.
func NewRateLimited(next Notifier, perSecond float64, burst int) *RateLimited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// SendConflictAlert implements Notifier.
func (r *RateLimited) SendConflictAlert(ctx context.Context, ticket *entity.ConflictTicket, items []*entity.SnapshotItem) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit: %w", err)
	}
	return r.next.SendConflictAlert(ctx, ticket, items)
}
