/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/inspecta/inspecta/config"
	"github.com/inspecta/inspecta/httpclient"
	"github.com/inspecta/inspecta/retry"
)

const cfgDefaultKeyPrefix = "backend"

// Retry policies.
const (
	RetryPolicyExponential = "exponential"
	RetryPolicyConstant    = "constant"
)

// Default values of retry settings.
const (
	DefaultRetriesMaxAttempts     = 3
	DefaultRetriesInitialInterval = 200 * time.Millisecond
)

const (
	cfgKeyURL                    = "url"
	cfgKeyAPIKey                 = "apiKey"
	cfgKeyRetriesMaxAttempts     = "retries.maxAttempts"
	cfgKeyRetriesPolicy          = "retries.policy"
	cfgKeyRetriesInitialInterval = "retries.initialInterval"
	cfgKeyClientPrefix           = "client"
)

// RetriesConfig controls how calls that failed with a transient error are repeated.
type RetriesConfig struct {
	MaxAttempts     int           `mapstructure:"maxAttempts"`
	Policy          string        `mapstructure:"policy"`
	InitialInterval time.Duration `mapstructure:"initialInterval"`
}

// RetryPolicy builds retry.Policy from the configuration.
func (c *RetriesConfig) RetryPolicy() retry.Policy {
	if c.MaxAttempts == 0 {
		return retry.NoRetryPolicy{}
	}
	if c.Policy == RetryPolicyConstant {
		return retry.NewConstantBackoffPolicy(c.InitialInterval, c.MaxAttempts)
	}
	return retry.NewExponentialBackoffPolicy(c.InitialInterval, c.MaxAttempts)
}

// Config represents a set of configuration parameters for the backend client.
type Config struct {
	URL     string             `mapstructure:"url"`
	APIKey  string             `mapstructure:"apiKey"`
	Retries RetriesConfig      `mapstructure:"retries"`
	Client  *httpclient.Config `mapstructure:"client"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix, Client: httpclient.NewConfig()}
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
	dp.SetDefault(cfgKeyRetriesMaxAttempts, DefaultRetriesMaxAttempts)
	dp.SetDefault(cfgKeyRetriesPolicy, RetryPolicyExponential)
	dp.SetDefault(cfgKeyRetriesInitialInterval, DefaultRetriesInitialInterval)
	c.Client.SetProviderDefaults(config.NewKeyPrefixedDataProvider(dp, cfgKeyClientPrefix))
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.URL, err = dp.GetString(cfgKeyURL); err != nil {
		return err
	}
	if c.URL == "" {
		return dp.WrapKeyErr(cfgKeyURL, errors.New("must be set"))
	}
	if u, parseErr := url.Parse(c.URL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		return dp.WrapKeyErr(cfgKeyURL, fmt.Errorf("must be an absolute URL, got %q", c.URL))
	}
	if c.APIKey, err = dp.GetString(cfgKeyAPIKey); err != nil {
		return err
	}
	if c.APIKey == "" {
		return dp.WrapKeyErr(cfgKeyAPIKey, errors.New("must be set"))
	}

	if c.Retries.MaxAttempts, err = dp.GetInt(cfgKeyRetriesMaxAttempts); err != nil {
		return err
	}
	if c.Retries.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesMaxAttempts, errors.New("must not be negative"))
	}
	if c.Retries.Policy, err = dp.GetStringFromSet(
		cfgKeyRetriesPolicy, []string{RetryPolicyExponential, RetryPolicyConstant}, false,
	); err != nil {
		return err
	}
	if c.Retries.InitialInterval, err = dp.GetDuration(cfgKeyRetriesInitialInterval); err != nil {
		return err
	}
	if c.Retries.InitialInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyRetriesInitialInterval, errors.New("must be positive"))
	}

	return c.Client.Set(config.NewKeyPrefixedDataProvider(dp, cfgKeyClientPrefix))
}
