package httpx

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultBreakerMaxFailures      = 5
	defaultBreakerCooldown         = 30 * time.Second
	defaultBreakerHalfOpenRequests = 3
)

// CircuitBreaker guards calls to external providers so a failing dependency
// stops being hammered while it recovers.
type CircuitBreaker interface {
	Execute(fn func() error) error
}

// BreakerSettings is the tunable surface of a provider breaker. Zero fields
// fall back to the package defaults so callers only set what they override.
type BreakerSettings struct {
	Name             string
	MaxFailures      uint32
	Cooldown         time.Duration
	HalfOpenRequests uint32
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MaxFailures == 0 {
		s.MaxFailures = defaultBreakerMaxFailures
	}
	if s.Cooldown <= 0 {
		s.Cooldown = defaultBreakerCooldown
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = defaultBreakerHalfOpenRequests
	}
	return s
}

type circuitBreakerWrapper struct {
	breaker *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(settings BreakerSettings) CircuitBreaker {
	settings = settings.withDefaults()
	return &circuitBreakerWrapper{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        settings.Name,
			MaxRequests: settings.HalfOpenRequests,
			Timeout:     settings.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.MaxFailures
			},
		}),
	}
}

func (g *circuitBreakerWrapper) Execute(fn func() error) error {
	_, err := g.breaker.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("breaker (%s): %w", g.breaker.Name(), err)
	}
	return nil
}
