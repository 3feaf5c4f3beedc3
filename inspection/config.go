/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package inspection

import (
	"errors"
	"fmt"

	"github.com/inspecta/inspecta/config"
)

const cfgDefaultKeyPrefix = "inspection"

// Default values of the inspection settings.
const (
	DefaultMaxPhotos   = 10
	DefaultPageSize    = 20
	DefaultMaxPageSize = 100
)

const (
	cfgKeyMaxPhotos       = "maxPhotos"
	cfgKeyPageSizeDefault = "pageSize.default"
	cfgKeyPageSizeMax     = "pageSize.max"
	cfgKeyTables          = "tables"
)

// Config represents a set of configuration parameters for inspection records.
type Config struct {
	MaxPhotos int `mapstructure:"maxPhotos"`
	PageSize  struct {
		Default int `mapstructure:"default"`
		Max     int `mapstructure:"max"`
	} `mapstructure:"pageSize"`
	// Tables overrides backend tables of kinds (see DefaultTables).
	Tables map[Kind]string `mapstructure:"tables"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// NewDefaultConfig creates a Config filled with default values.
func NewDefaultConfig() *Config {
	cfg := NewConfig()
	cfg.MaxPhotos = DefaultMaxPhotos
	cfg.PageSize.Default = DefaultPageSize
	cfg.PageSize.Max = DefaultMaxPageSize
	return cfg
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
	dp.SetDefault(cfgKeyMaxPhotos, DefaultMaxPhotos)
	dp.SetDefault(cfgKeyPageSizeDefault, DefaultPageSize)
	dp.SetDefault(cfgKeyPageSizeMax, DefaultMaxPageSize)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.MaxPhotos, err = dp.GetInt(cfgKeyMaxPhotos); err != nil {
		return err
	}
	if c.MaxPhotos < 0 {
		return dp.WrapKeyErr(cfgKeyMaxPhotos, errors.New("must not be negative"))
	}
	if c.PageSize.Default, err = dp.GetInt(cfgKeyPageSizeDefault); err != nil {
		return err
	}
	if c.PageSize.Max, err = dp.GetInt(cfgKeyPageSizeMax); err != nil {
		return err
	}
	if c.PageSize.Default <= 0 || c.PageSize.Default > c.PageSize.Max {
		return dp.WrapKeyErr(cfgKeyPageSizeDefault,
			fmt.Errorf("must be positive and not greater than %d, got %d", c.PageSize.Max, c.PageSize.Default))
	}

	var tables map[string]string
	if err = dp.UnmarshalKey(cfgKeyTables, &tables); err != nil {
		return err
	}
	c.Tables = make(map[Kind]string, len(tables))
	for kindStr, table := range tables {
		kind, kindErr := ParseKind(kindStr)
		if kindErr != nil {
			return dp.WrapKeyErr(cfgKeyTables, kindErr)
		}
		if table == "" {
			return dp.WrapKeyErr(cfgKeyTables+"."+kindStr, errors.New("must not be empty"))
		}
		c.Tables[kind] = table
	}
	return nil
}

// Table returns the backend table of the kind.
func (c *Config) Table(kind Kind) string {
	if table, ok := c.Tables[kind]; ok {
		return table
	}
	return DefaultTables[kind]
}
