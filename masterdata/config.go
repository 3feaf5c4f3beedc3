/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package masterdata

import (
	"errors"
	"time"

	"github.com/inspecta/inspecta/config"
)

const cfgDefaultKeyPrefix = "masterdata"

// Default values of the master data cache settings.
const (
	DefaultCacheMaxEntries = 1000
	DefaultCacheTTL        = 10 * time.Minute
)

const (
	cfgKeyCacheMaxEntries = "cache.maxEntries"
	cfgKeyCacheTTL        = "cache.ttl"
)

// Config represents a set of configuration parameters for the master data cache.
type Config struct {
	Cache struct {
		MaxEntries int           `mapstructure:"maxEntries"`
		TTL        time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`

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
	dp.SetDefault(cfgKeyCacheMaxEntries, DefaultCacheMaxEntries)
	dp.SetDefault(cfgKeyCacheTTL, DefaultCacheTTL)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Cache.MaxEntries, err = dp.GetInt(cfgKeyCacheMaxEntries); err != nil {
		return err
	}
	if c.Cache.MaxEntries <= 0 {
		return dp.WrapKeyErr(cfgKeyCacheMaxEntries, errors.New("must be positive"))
	}
	if c.Cache.TTL, err = dp.GetDuration(cfgKeyCacheTTL); err != nil {
		return err
	}
	if c.Cache.TTL < 0 {
		return dp.WrapKeyErr(cfgKeyCacheTTL, errors.New("must not be negative"))
	}
	return nil
}
