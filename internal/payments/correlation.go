package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fundi/pkg/cache"
)

const correlationKeyPrefix = "fundi:settlement:correlation:"

// CorrelationStore maps a push-payment correlation id to its asynchronous
// outcome. The callback receiver writes each entry once; the status poller
// and the reconciler's polling loop read it until a terminal state appears.
// Backed by Redis with a TTL so correlation state survives process restarts
// and is visible to every instance behind the load balancer.
type CorrelationStore interface {
	// Record stores a terminal outcome. The first write for a correlation id
	// wins; provider redeliveries are ignored.
	Record(ctx context.Context, outcome PushOutcome) error

	// Lookup returns the recorded outcome, or (nil, nil) when no callback
	// has arrived yet. Absence is not an error: resolution may simply not
	// have happened.
	Lookup(ctx context.Context, checkoutRequestID string) (*PushOutcome, error)
}

type redisCorrelationStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCorrelationStore(cacheService cache.Service, ttl time.Duration) CorrelationStore {
	return &redisCorrelationStore{
		cache: cacheService,
		ttl:   ttl,
	}
}

func (s *redisCorrelationStore) Record(ctx context.Context, outcome PushOutcome) error {
	if outcome.CheckoutRequestID == "" {
		return fmt.Errorf("correlation id is required")
	}

	_, err := s.cache.SetNX(ctx, correlationKeyPrefix+outcome.CheckoutRequestID, outcome, s.ttl)
	if err != nil {
		return fmt.Errorf("failed to record correlation outcome: %w", err)
	}
	return nil
}

func (s *redisCorrelationStore) Lookup(ctx context.Context, checkoutRequestID string) (*PushOutcome, error) {
	var outcome PushOutcome
	err := s.cache.Get(ctx, correlationKeyPrefix+checkoutRequestID, &outcome)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up correlation outcome: %w", err)
	}
	return &outcome, nil
}
