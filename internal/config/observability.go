package config

import (
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/logwell/logwell/internal/apperr"
)

// ObservabilityConfig enables the optional New Relic agent. Disabled
// by default; when enabled a license key is required.
type ObservabilityConfig struct {
	Enabled     bool   `koanf:"enabled"`
	LicenseKey  string `koanf:"license_key"`
	ServiceName string `koanf:"-"`
	Environment string `koanf:"-"`
}

// DefaultObservabilityConfig returns the disabled configuration.
func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{Enabled: false}
}

// Validate checks the config for internal consistency.
func (c *ObservabilityConfig) Validate() error {
	if c.Enabled && len(c.LicenseKey) != 40 {
		return apperr.New(apperr.KindConfiguration,
			"observability enabled but license key is not 40 characters")
	}
	return nil
}

// NewApplication builds the New Relic application, or nil when
// observability is disabled.
func (c *ObservabilityConfig) NewApplication() (*newrelic.Application, error) {
	if !c.Enabled {
		return nil, nil
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(c.ServiceName),
		newrelic.ConfigLicense(c.LicenseKey),
		func(nc *newrelic.Config) {
			nc.CustomInsightsEvents.Enabled = true
			nc.Labels = map[string]string{"environment": c.Environment}
		},
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "initialize observability agent", err)
	}
	return app, nil
}
