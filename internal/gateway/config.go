package gateway

import (
	"errors"
	"strings"
	"time"
)

// Config contains configuration for the Razorpay provider.
type Config struct {
	// KeyID is the Razorpay key id (rzp_test_... or rzp_live_...)
	KeyID string

	// KeySecret is the key secret used to sign settlement callbacks.
	// Never sent to clients.
	KeySecret string

	// Timeout bounds each gateway API call. Default: 15s.
	Timeout time.Duration

	// BreakerThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5.
	BreakerThreshold uint32

	// BreakerCooldown is how long the circuit stays open before probing
	// again. Default: 30s.
	BreakerCooldown time.Duration
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.KeyID == "" {
		return errors.New("razorpay: key id is required")
	}
	if c.KeySecret == "" {
		return errors.New("razorpay: key secret is required")
	}
	return nil
}

// IsTestMode returns true if using test mode keys.
func (c *Config) IsTestMode() bool {
	return strings.HasPrefix(c.KeyID, "rzp_test_")
}

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 15 * time.Second
}

func (c *Config) breakerThreshold() uint32 {
	if c.BreakerThreshold > 0 {
		return c.BreakerThreshold
	}
	return 5
}

func (c *Config) breakerCooldown() time.Duration {
	if c.BreakerCooldown > 0 {
		return c.BreakerCooldown
	}
	return 30 * time.Second
}
