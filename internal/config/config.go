// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for the session and client registration store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	// Production unconditionally disables bypass mode and mocked permissions.
	Env string `mapstructure:"APP_ENV"`

	// TokenExpireMinutes is the security token lifetime in minutes.
	TokenExpireMinutes int `mapstructure:"TOKEN_EXPIRE_MINUTES"`

	// OIDCHMACSecret is the shared secret used to sign OIDC state values. Required.
	OIDCHMACSecret string `mapstructure:"OIDC_HMAC_SECRET"`
	// OIDCStateMaxAge bounds how old a signed OIDC state may be (e.g. "15m").
	OIDCStateMaxAge string `mapstructure:"OIDC_STATE_MAX_AGE"`

	// BypassEnabled turns on local sign-in against the allow-list and shared password.
	// Ignored when Env is production.
	BypassEnabled bool `mapstructure:"BYPASS_ENABLED"`
	// BypassUsers is the comma-separated allow-list of user IDs permitted in bypass mode.
	BypassUsers string `mapstructure:"BYPASS_USERS"`
	// BypassPassword is the shared dev password for bypass sign-in.
	BypassPassword string `mapstructure:"BYPASS_PASSWORD"`
	// MockPermissionsEnabled attaches configured mock facilities on sign-in.
	// Ignored when Env is production.
	MockPermissionsEnabled bool `mapstructure:"MOCK_PERMISSIONS_ENABLED"`

	// NAASEndpoint is the NAAS security token service URL (SOAP).
	NAASEndpoint string `mapstructure:"NAAS_ENDPOINT"`
	// NAASAppID is the application account ID used for service-to-service NAAS calls.
	NAASAppID string `mapstructure:"NAAS_APP_ID"`
	// NAASAppSecret is the application account secret for NAAS calls.
	NAASAppSecret string `mapstructure:"NAAS_APP_SECRET"`
	// CDXPolicyEndpoint is the CDX policy/registration service base URL.
	CDXPolicyEndpoint string `mapstructure:"CDX_POLICY_ENDPOINT"`
	// UpstreamTimeout bounds every outbound NAAS/CDX call (e.g. "10s").
	UpstreamTimeout string `mapstructure:"UPSTREAM_TIMEOUT"`

	// BcryptCost is the bcrypt cost factor (4–31) for client secret hashing; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("TOKEN_EXPIRE_MINUTES", 20)
	v.SetDefault("OIDC_HMAC_SECRET", "")
	v.SetDefault("OIDC_STATE_MAX_AGE", "15m")
	v.SetDefault("BYPASS_ENABLED", false)
	v.SetDefault("BYPASS_USERS", "")
	v.SetDefault("BYPASS_PASSWORD", "")
	v.SetDefault("MOCK_PERMISSIONS_ENABLED", false)
	v.SetDefault("NAAS_ENDPOINT", "")
	v.SetDefault("NAAS_APP_ID", "")
	v.SetDefault("NAAS_APP_SECRET", "")
	v.SetDefault("CDX_POLICY_ENDPOINT", "")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("BCRYPT_COST", 12)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.OIDCHMACSecret == "" {
		return nil, errors.New("config: OIDC_HMAC_SECRET must be set")
	}
	if cfg.TokenExpireMinutes <= 0 {
		return nil, errors.New("config: TOKEN_EXPIRE_MINUTES must be positive")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.BypassActive() && cfg.BypassPassword == "" {
		return nil, errors.New("config: BYPASS_PASSWORD must be set when bypass is enabled")
	}

	return &cfg, nil
}

// Production reports whether the app runs with APP_ENV=production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// BypassActive reports whether bypass sign-in is effectively enabled.
// Production overrides BYPASS_ENABLED unconditionally.
func (c *Config) BypassActive() bool {
	return c.BypassEnabled && !c.Production()
}

// MockPermissionsActive reports whether mocked facility permissions may be attached.
// Production overrides MOCK_PERMISSIONS_ENABLED unconditionally.
func (c *Config) MockPermissionsActive() bool {
	return c.MockPermissionsEnabled && !c.Production()
}

// BypassUserList returns the bypass allow-list from the comma-separated config.
func (c *Config) BypassUserList() []string {
	if c == nil || c.BypassUsers == "" {
		return nil
	}
	parts := strings.Split(c.BypassUsers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TokenTTL returns the security token lifetime. Returns 20m if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	if c.TokenExpireMinutes <= 0 {
		return 20 * time.Minute
	}
	return time.Duration(c.TokenExpireMinutes) * time.Minute
}

// StateMaxAge parses OIDCStateMaxAge as a time.Duration. Returns 15m when
// unset or unparsable. A configured zero or negative duration passes through
// and disables the state age check.
func (c *Config) StateMaxAge() time.Duration {
	d, err := time.ParseDuration(c.OIDCStateMaxAge)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// Timeout parses UpstreamTimeout as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.UpstreamTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
