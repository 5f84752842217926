// Package config loads the hmac-server configuration from YAML and the
// environment.
//
// Values are layered: the embedded defaults, then config.yaml from the
// first search path that has one, then HMAC_* environment variables. Nested
// keys map to variables by upper-casing and replacing dots with
// underscores, so auth.tolerance is HMAC_AUTH_TOLERANCE.
package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/fatih/structs"
	"github.com/jeremywohl/flatten"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/vitalvas/httphmac/hmacauth"
	"github.com/vitalvas/httphmac/logging"
	"github.com/vitalvas/httphmac/secretstore"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HMAC"

//go:embed default.yaml
var defaultYAML []byte

// Config is the complete server configuration.
type Config struct {
	Server  Server             `mapstructure:"server" structs:"server"`
	Auth    Auth               `mapstructure:"auth" structs:"auth"`
	Secrets secretstore.Config `mapstructure:"secrets" structs:"secrets"`
	Log     logging.Config     `mapstructure:"log" structs:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Listen            string        `mapstructure:"listen" structs:"listen"`
	Hostname          string        `mapstructure:"hostname" structs:"hostname"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" structs:"max_body_bytes"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" structs:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" structs:"shutdown_timeout"`
	TrustRequestID    bool          `mapstructure:"trust_request_id" structs:"trust_request_id"`
}

// Auth configures request validation and response signing.
type Auth struct {
	Algorithm              string        `mapstructure:"algorithm" structs:"algorithm"`
	Tolerance              time.Duration `mapstructure:"tolerance" structs:"tolerance"`
	RequiredHeaders        []string      `mapstructure:"required_headers" structs:"required_headers"`
	TrustForwarded         bool          `mapstructure:"trust_forwarded" structs:"trust_forwarded"`
	TrustedProxies         []string      `mapstructure:"trusted_proxies" structs:"trusted_proxies"`
	DisableResponseSigning bool          `mapstructure:"disable_response_signing" structs:"disable_response_signing"`
}

// Load reads the configuration. paths are searched in order for
// config.yaml; a missing file is not an error.
func Load(paths []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return nil, errors.Wrap(err, "failed to load embedded default config")
	}

	v.SetConfigName("config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindAllConfigKeys(v); err != nil {
		return nil, err
	}

	if err := v.MergeInConfig(); err != nil {
		var nfErr viper.ConfigFileNotFoundError
		if !errors.As(err, &nfErr) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unable to decode into struct")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// bindAllConfigKeys binds every leaf key of Config to its environment
// variable. AutomaticEnv alone does not make Unmarshal see keys that are
// absent from the config files.
func bindAllConfigKeys(v *viper.Viper) error {
	flat, err := flatten.Flatten(structs.Map(Config{}), "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "unable to flatten config")
	}

	for key := range flat {
		if err := v.BindEnv(key); err != nil {
			return errors.Wrapf(err, "unable to bind env var: %s", key)
		}
	}

	return nil
}

// Validate checks the values that would otherwise only fail when the
// first request arrives.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}

	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be greater than zero")
	}

	if c.Auth.Tolerance < 0 {
		return errors.New("auth.tolerance must not be negative")
	}

	if _, err := hmacauth.ParseAlgorithm(c.Auth.Algorithm); err != nil {
		return errors.Wrap(err, "auth.algorithm")
	}

	if err := hmacauth.ValidateHeaderNames(c.Auth.RequiredHeaders); err != nil {
		return errors.Wrap(err, "auth.required_headers")
	}

	if err := hmacauth.ValidateTrustedProxies(c.Auth.TrustedProxies); err != nil {
		return errors.Wrap(err, "auth.trusted_proxies")
	}

	return c.Secrets.Validate()
}

// ValidatorConfig returns the hmacauth configuration for the auth section.
func (c *Config) ValidatorConfig(resolver hmacauth.SecretResolver, observer hmacauth.Observer) hmacauth.ValidatorConfig {
	return hmacauth.ValidatorConfig{
		Resolver:        resolver,
		Algorithm:       hmacauth.Algorithm(c.Auth.Algorithm),
		Tolerance:       c.Auth.Tolerance,
		RequiredHeaders: c.Auth.RequiredHeaders,
		TrustForwarded:  c.Auth.TrustForwarded,
		TrustedProxies:  c.Auth.TrustedProxies,
		Observer:        observer,
	}
}

// MiddlewareConfig returns the hmacauth middleware configuration.
func (c *Config) MiddlewareConfig(resolver hmacauth.SecretResolver, observer hmacauth.Observer) hmacauth.MiddlewareConfig {
	return hmacauth.MiddlewareConfig{
		Validate:               c.ValidatorConfig(resolver, observer),
		DisableResponseSigning: c.Auth.DisableResponseSigning,
	}
}
