package transfercertificate

import (
	"fmt"
	"net/url"
	"time"

	"ehealth-workers/internal/common/config"
	"ehealth-workers/internal/common/ehealth"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// MaxRetries caps the retries handed back to the broker for a retryable failure.
	MaxRetries int `mapstructure:"max_retries"`

	EducationLevelCode     int  `mapstructure:"education_level_code"`
	StrictCertificateCheck bool `mapstructure:"strict_certificate_check"`

	// Location is the site timezone the issue date is rendered in.
	Location *time.Location `mapstructure:"-"`
	Registry ehealth.Config `mapstructure:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:            true,
		MaxJobsActive:      5,
		Timeout:            30 * time.Second,
		MaxRetries:         3,
		EducationLevelCode: config.DefaultEducationLevelCode,
		Location:           time.UTC,
		Registry: ehealth.Config{
			EndpointURL:  config.DefaultAPIURL,
			MaxRedirects: config.DefaultMaxRedirects,
		},
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.EducationLevelCode < 0 {
		return fmt.Errorf("education_level_code must not be negative")
	}
	u, err := url.Parse(c.Registry.EndpointURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q is not an absolute url", c.Registry.EndpointURL)
	}
	if c.Registry.Timeout < 0 {
		return fmt.Errorf("registry timeout must not be negative")
	}
	return nil
}

// createConfigFromAppConfig layers the worker entry and the transfer section
// of the application config over the defaults. custom wins when given.
func createConfigFromAppConfig(appCfg *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}

	cfg := DefaultConfig()
	if appCfg == nil {
		return cfg
	}

	w := config.GetWorkerConfig(appCfg, TaskType)
	cfg.Enabled = w.Enabled
	if w.MaxJobsActive > 0 {
		cfg.MaxJobsActive = w.MaxJobsActive
	}
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	if w.MaxRetries > 0 {
		cfg.MaxRetries = w.MaxRetries
	}

	t := appCfg.Transfer
	if t.EducationLevelCode != nil {
		cfg.EducationLevelCode = *t.EducationLevelCode
	}
	// Validated at load time; an unknown zone falls back to UTC here.
	if loc, err := t.Location(); err == nil {
		cfg.Location = loc
	}
	cfg.StrictCertificateCheck = t.StrictCertificateCheck
	cfg.Registry = ehealth.Config{
		EndpointURL:  t.APIURL,
		APIToken:     t.APIToken,
		Timeout:      config.GetDuration(t.Timeout),
		MaxRedirects: t.MaxRedirects,
	}

	return cfg
}
