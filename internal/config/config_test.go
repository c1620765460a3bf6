package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		MeterURL:        "http://meter.lan/api/v1/now",
		PollInterval:    2,
		HTTPTimeout:     4,
		StatusInterval:  1,
		BackoffBaseMs:   1000,
		BackoffMaxMs:    16000,
		MaxReconnects:   3,
		Width:           320,
		Height:          240,
		PowerThresholds: []float64{1500, 2500, 3500},
		TempThresholds:  []float64{60, 65, 70},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.MeterURL = "" }},
		{"poll interval too low", func(c *Config) { c.PollInterval = 0 }},
		{"poll interval too high", func(c *Config) { c.PollInterval = 6 }},
		{"zero http timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"zero status interval", func(c *Config) { c.StatusInterval = 0 }},
		{"non-monotonic power thresholds", func(c *Config) { c.PowerThresholds = []float64{1500, 1500, 3500} }},
		{"descending temp thresholds", func(c *Config) { c.TempThresholds = []float64{70, 65, 60} }},
		{"short threshold table", func(c *Config) { c.PowerThresholds = []float64{1500, 2500} }},
		{"backoff max below base", func(c *Config) { c.BackoffMaxMs = 500 }},
		{"zero reconnect budget", func(c *Config) { c.MaxReconnects = 0 }},
		{"zero width", func(c *Config) { c.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPeriodHelpers(t *testing.T) {
	cfg := validConfig()
	cfg.IdleDelayMs = 50
	assert.Equal(t, 2*time.Second, cfg.PollPeriod())
	assert.Equal(t, time.Second, cfg.StatusPeriod())
	assert.Equal(t, 50*time.Millisecond, cfg.IdleDelay())
}
