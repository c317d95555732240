package repository

import (
	"context"
	"sync/atomic"
	"time"

	"clinicbook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverResourceLocker prefers the primary locker (Redis) and drops to the
// fallback (in-memory) when the primary errors. The primary is re-probed
// after a minute. Cross-process exclusion is lost while failed over; the
// store's serialized transactions still hold the line in that window.
type FailoverResourceLocker struct {
	primary   domain.ResourceLocker
	fallback  domain.ResourceLocker
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverResourceLocker(primary, fallback domain.ResourceLocker, logger *zerolog.Logger) *FailoverResourceLocker {
	return &FailoverResourceLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverResourceLocker) Acquire(ctx context.Context, resourceID string) (func(), error) {
	if !r.isDown.Load() || r.shouldRetryPrimary() {
		release, err := r.primary.Acquire(ctx, resourceID)
		if err == nil {
			r.isDown.Store(false)
			return release, nil
		}
		if ctx.Err() != nil {
			// The caller's deadline expired; not a primary outage.
			return nil, err
		}
		r.logger.Error().Err(err).Str("resource_id", resourceID).
			Msg("primary resource locker failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Acquire(ctx, resourceID)
}

func (r *FailoverResourceLocker) shouldRetryPrimary() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}
