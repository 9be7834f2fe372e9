package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// EnvConfig mirrors Config for environment variables. Pointer fields stay nil
// when the variable is unset, so only variables that are present override.
type EnvConfig struct {
	EndpointAddrHTTP             *string        `env:"HTTP_ADDR"`
	MetricsAddr                  *string        `env:"METRICS_ADDR"`
	DatabaseDSN                  *string        `env:"DATABASE_DSN"`
	SecretKey                    *string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration  *time.Duration `env:"ACCESS_TTL"`
	RefreshTokenValidityDuration *time.Duration `env:"REFRESH_TTL"`
	S3RootUser                   *string        `env:"S3_USER"`
	S3RootPassword               *string        `env:"S3_PASSWORD"`
	S3Bucket                     *string        `env:"S3_BUCKET"`
	S3Region                     *string        `env:"S3_REGION"`
	S3BaseEndpoint               *string        `env:"S3_ENDPOINT"`
	AllowedOrigins               []string       `env:"ALLOWED_ORIGINS" envSeparator:","`
	MaxUploadBytes               *int64         `env:"MAX_UPLOAD_BYTES"`
	LogLevel                     *string        `env:"LOG_LEVEL"`
}

const envPrefix = "ROMVAULT_"

// loadDotEnv is a seam so tests do not pick up a developer's .env file.
var loadDotEnv = func() { _ = godotenv.Load() }

// parseEnv overlays ROMVAULT_* variables (optionally read from a .env file
// in the working directory) onto config. Malformed values panic.
func parseEnv(config *Config) {
	loadDotEnv()

	c := &EnvConfig{}
	if err := env.ParseWithOptions(c, env.Options{Prefix: envPrefix}); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = *c.AccessTokenValidityDuration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = *c.RefreshTokenValidityDuration
	}
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
}
