package auth

import (
	"fmt"
	"time"

	"gopkg.daemonl.com/envconf"
)

// Config holds auth configuration
type Config struct {
	Issuer   string `env:"AUTH_ISSUER" default:"http://localhost:8180/realms/wailsalutem"`
	JWKSURL  string `env:"AUTH_JWKS_URL" default:"http://localhost:8180/realms/wailsalutem/protocol/openid-connect/certs"`
	Audience string `env:"AUTH_AUD" default:""`

	// JWKSRefreshSeconds controls the background key refresh. 0 uses 15 minutes.
	JWKSRefreshSeconds int `env:"AUTH_JWKS_REFRESH_SECONDS" default:"900"`
}

// LoadConfig reads AUTH_ISSUER, AUTH_JWKS_URL and AUTH_AUD from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconf.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse auth config: %w", err)
	}
	return cfg, nil
}

// RefreshInterval returns the JWKS refresh period
func (c Config) RefreshInterval() time.Duration {
	if c.JWKSRefreshSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.JWKSRefreshSeconds) * time.Second
}
