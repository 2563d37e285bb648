package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "zero tangent depth", mutate: func(c *Config) { c.MaxRabbitholeDepth = 0 }},
		{name: "pong equals heartbeat", mutate: func(c *Config) { c.PongTimeout = c.HeartbeatInterval }, wantErr: true},
		{name: "pong longer than heartbeat", mutate: func(c *Config) { c.PongTimeout = time.Minute }, wantErr: true},
		{name: "no heartbeat", mutate: func(c *Config) { c.HeartbeatInterval = 0 }, wantErr: true},
		{name: "no error budget", mutate: func(c *Config) { c.MaxConsecutiveErrors = 0 }, wantErr: true},
		{name: "negative depth", mutate: func(c *Config) { c.MaxRabbitholeDepth = -1 }, wantErr: true},
		{name: "no idle check", mutate: func(c *Config) { c.IdleCheckInterval = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestErrorBudget(t *testing.T) {
	b := errorBudget{max: 3}
	assert.False(t, b.fail())
	assert.False(t, b.fail())
	b.reset()
	assert.False(t, b.fail())
	assert.False(t, b.fail())
	assert.True(t, b.fail())
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	_, err := NewEngine(DefaultConfig(), Dependencies{})
	assert.Error(t, err)
}
