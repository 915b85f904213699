package queue

import (
	"time"
)

// BackoffStrategy returns the pause before retry number attempt (1-based).
type BackoffStrategy interface {
	Delay(attempt int) time.Duration
}

type FixedBackoff struct {
	Duration time.Duration
}

func (f FixedBackoff) Delay(int) time.Duration {
	return f.Duration
}

// ExponentialBackoff doubles Base per attempt and never exceeds MaxDelay.
type ExponentialBackoff struct {
	Base     time.Duration
	MaxDelay time.Duration
}

func (e ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return e.Base
	}
	if attempt > 62 {
		return e.MaxDelay
	}
	delay := e.Base << uint(attempt)
	if delay > e.MaxDelay || delay < e.Base {
		return e.MaxDelay
	}
	return delay
}

type NoBackoff struct{}

func (NoBackoff) Delay(int) time.Duration { return 0 }

// ParseBackoff maps a config name (none, fixed, exponential) to a strategy.
func ParseBackoff(name string, base, maxDelay time.Duration) (BackoffStrategy, error) {
	switch name {
	case "", "none":
		return NoBackoff{}, nil
	case "fixed":
		return FixedBackoff{Duration: base}, nil
	case "exponential":
		if maxDelay < base {
			maxDelay = base
		}
		return ExponentialBackoff{Base: base, MaxDelay: maxDelay}, nil
	default:
		return nil, ErrInvalidBackoff.WithDetail("name", name)
	}
}
