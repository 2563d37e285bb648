package engine

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid session engine config")

type Config struct {
	HeartbeatInterval    time.Duration
	PongTimeout          time.Duration
	MaxConsecutiveErrors int
	IdleTimeout          time.Duration
	IdleCheckInterval    time.Duration
	MaxRabbitholeDepth   int
	// EvaluationTimeout bounds one judge or detector call including its retry.
	EvaluationTimeout time.Duration
	// RetryInterval is the first backoff step before the single retry of an upstream call.
	RetryInterval time.Duration
	// HistoryWindow caps how many transcript messages are handed to collaborators.
	HistoryWindow int
	InboxSize     int
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:    30 * time.Second,
		PongTimeout:          10 * time.Second,
		MaxConsecutiveErrors: 5,
		IdleTimeout:          5 * time.Minute,
		IdleCheckInterval:    10 * time.Second,
		MaxRabbitholeDepth:   3,
		EvaluationTimeout:    60 * time.Second,
		RetryInterval:        500 * time.Millisecond,
		HistoryWindow:        40,
		InboxSize:            32,
	}
}

// Validate rejects non-positive settings and a pong timeout that is not
// strictly shorter than the heartbeat interval.
func (c Config) Validate() error {
	switch {
	case c.HeartbeatInterval <= 0:
		return fmt.Errorf("%w: heartbeat interval must be positive", ErrInvalidConfig)
	case c.PongTimeout <= 0:
		return fmt.Errorf("%w: pong timeout must be positive", ErrInvalidConfig)
	case c.PongTimeout >= c.HeartbeatInterval:
		return fmt.Errorf("%w: pong timeout %s must be shorter than heartbeat interval %s",
			ErrInvalidConfig, c.PongTimeout, c.HeartbeatInterval)
	case c.MaxConsecutiveErrors <= 0:
		return fmt.Errorf("%w: max consecutive errors must be positive", ErrInvalidConfig)
	case c.IdleTimeout <= 0 || c.IdleCheckInterval <= 0:
		return fmt.Errorf("%w: idle timeout and check interval must be positive", ErrInvalidConfig)
	case c.MaxRabbitholeDepth < 0:
		return fmt.Errorf("%w: max rabbithole depth must not be negative", ErrInvalidConfig)
	case c.EvaluationTimeout <= 0:
		return fmt.Errorf("%w: evaluation timeout must be positive", ErrInvalidConfig)
	case c.RetryInterval < 0 || c.HistoryWindow < 0 || c.InboxSize < 0:
		return fmt.Errorf("%w: negative retry interval, history window or inbox size", ErrInvalidConfig)
	}
	return nil
}
