/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"errors"
	"fmt"

	"github.com/inspecta/inspecta/config"
)

const cfgDefaultKeyPrefix = "rateLimit"

// Rate-limiting algorithms.
const (
	AlgLeakyBucket   = "leaky_bucket"
	AlgSlidingWindow = "sliding_window"
)

// Default values of the rate limiting settings.
const (
	DefaultRate    = "600/m"
	DefaultMaxKeys = 10000
)

const (
	cfgKeyEnabled      = "enabled"
	cfgKeyAlg          = "alg"
	cfgKeyRate         = "rate"
	cfgKeyBurst        = "burst"
	cfgKeyMaxKeys      = "maxKeys"
	cfgKeyExcludedKeys = "excludedKeys"
)

// Config represents a set of configuration parameters for API rate limiting.
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Alg     string `mapstructure:"alg"`
	Rate    Rate   `mapstructure:"rate"`
	// Burst is used by the leaky bucket algorithm only.
	Burst   int `mapstructure:"burst"`
	MaxKeys int `mapstructure:"maxKeys"`
	// ExcludedKeys are glob patterns of keys (users or client addresses) that are never limited.
	ExcludedKeys []string `mapstructure:"excludedKeys"`

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
	dp.SetDefault(cfgKeyEnabled, false)
	dp.SetDefault(cfgKeyAlg, AlgLeakyBucket)
	dp.SetDefault(cfgKeyRate, DefaultRate)
	dp.SetDefault(cfgKeyMaxKeys, DefaultMaxKeys)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Alg, err = dp.GetStringFromSet(cfgKeyAlg, []string{AlgLeakyBucket, AlgSlidingWindow}, false); err != nil {
		return err
	}
	rateStr, err := dp.GetString(cfgKeyRate)
	if err != nil {
		return err
	}
	if c.Rate, err = ParseRate(rateStr); err != nil {
		return dp.WrapKeyErr(cfgKeyRate, err)
	}
	if c.Enabled && (c.Rate.Count == 0 || c.Rate.Duration == 0) {
		return dp.WrapKeyErr(cfgKeyRate, errors.New("must be set"))
	}
	if c.Burst, err = dp.GetInt(cfgKeyBurst); err != nil {
		return err
	}
	if c.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyBurst, fmt.Errorf("should not be negative, got %d", c.Burst))
	}
	if c.MaxKeys, err = dp.GetInt(cfgKeyMaxKeys); err != nil {
		return err
	}
	if c.MaxKeys <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxKeys, fmt.Errorf("should be positive, got %d", c.MaxKeys))
	}
	if c.ExcludedKeys, err = dp.GetStringSlice(cfgKeyExcludedKeys); err != nil {
		return err
	}
	return nil
}

// NewLimiter creates a Limiter of the configured algorithm.
func NewLimiter(cfg *Config) (Limiter, error) {
	if cfg.Alg == AlgSlidingWindow {
		return NewSlidingWindowLimiter(cfg.Rate, cfg.MaxKeys)
	}
	return NewLeakyBucketLimiter(cfg.Rate, cfg.Burst, cfg.MaxKeys)
}
