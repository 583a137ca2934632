package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

type CircuitBreakerConfig struct {
	MaxFailures      uint32        `json:"max_failures"`
	Timeout          time.Duration `json:"timeout"`
	HalfOpenMaxCalls uint32        `json:"half_open_max_calls"`
}

func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker stops calling redis after consecutive failures so a dead
// cache costs one fast error instead of a dial timeout per request. Cache
// misses count as successes.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(name string, config *CircuitBreakerConfig, onStateChange func(name string, from, to gobreaker.State)) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	maxFailures := config.MaxFailures
	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: config.HalfOpenMaxCalls,
			Timeout:     config.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: onStateChange,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrCacheMiss)
			},
		}),
	}
}

// Execute runs fn through the breaker. While the breaker is open fn is not
// called and the error wraps ErrCacheDown.
func (c *CircuitBreaker) Execute(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	return err
}

func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}
