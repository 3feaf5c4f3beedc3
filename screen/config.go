/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package screen

import (
	"fmt"
	"time"

	"github.com/inspecta/inspecta/config"
)

const cfgDefaultKeyPrefix = "screens"

// Default values of the screen registry settings.
const (
	DefaultMaxSessions   = 1000
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

const (
	cfgKeyMaxSessions   = "maxSessions"
	cfgKeyIdleTimeout   = "idleTimeout"
	cfgKeySweepInterval = "sweepInterval"
)

// Config represents a set of configuration parameters for the screen registry.
type Config struct {
	MaxSessions int `mapstructure:"maxSessions"`

	// IdleTimeout is how long a screen may stay unused before it is unmounted. Zero disables the sweep.
	IdleTimeout   time.Duration `mapstructure:"idleTimeout"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxSessions, DefaultMaxSessions)
	dp.SetDefault(cfgKeyIdleTimeout, DefaultIdleTimeout)
	dp.SetDefault(cfgKeySweepInterval, DefaultSweepInterval)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.MaxSessions, err = dp.GetInt(cfgKeyMaxSessions); err != nil {
		return err
	}
	if c.MaxSessions <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxSessions, fmt.Errorf("should be positive, got %d", c.MaxSessions))
	}
	if c.IdleTimeout, err = dp.GetDuration(cfgKeyIdleTimeout); err != nil {
		return err
	}
	if c.IdleTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyIdleTimeout, fmt.Errorf("should not be negative, got %s", c.IdleTimeout))
	}
	if c.SweepInterval, err = dp.GetDuration(cfgKeySweepInterval); err != nil {
		return err
	}
	if c.SweepInterval <= 0 {
		return dp.WrapKeyErr(cfgKeySweepInterval, fmt.Errorf("should be positive, got %s", c.SweepInterval))
	}
	return nil
}
