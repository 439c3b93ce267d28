// Package config provides the inventory connection settings.
//
// A Config is built once at startup, validated, and then passed by value to
// the components that need it. It can come from a YAML file or from the flat
// discovery.puppetdb.* key/value pairs of a plugin configuration.
//
// Config file locations (priority order):
//  1. $HOSTSCOPE_CONFIG
//  2. ./hostscope.yaml
//  3. ~/.config/hostscope/config.yaml
//  4. /etc/hostscope/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost       = "localhost"
	DefaultPort       = 8080
	DefaultAPIVersion = "3"
	DefaultTimeout    = 30 * time.Second
	DefaultKrb5Config = "/etc/krb5.conf"
)

// ErrMissingCredential is returned when TLS is enabled without one of the
// CA, certificate or private key paths.
var ErrMissingCredential = errors.New("missing TLS credential")

// ErrInvalid is returned for settings that are present but unusable.
var ErrInvalid = errors.New("invalid configuration")

// Config holds everything needed to reach the inventory service.
type Config struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	UseSSL            Flag     `yaml:"use_ssl"`
	UseNegotiatedAuth Flag     `yaml:"use_negotiated_auth"`
	SSLCA             string   `yaml:"ssl_ca,omitempty"`
	SSLCert           string   `yaml:"ssl_cert,omitempty"`
	SSLPrivateKey     string   `yaml:"ssl_private_key,omitempty"`
	APIVersion        string   `yaml:"api_version"`
	Timeout           Duration `yaml:"timeout,omitempty"`

	// Negotiated-auth settings; ignored unless UseNegotiatedAuth is set.
	Krb5Config       string `yaml:"krb5_config,omitempty"`
	Krb5CCache       string `yaml:"krb5_ccache,omitempty"`
	ServicePrincipal string `yaml:"service_principal,omitempty"`
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.Krb5Config == "" {
		c.Krb5Config = DefaultKrb5Config
	}
	if c.Krb5CCache == "" {
		c.Krb5CCache = defaultCCache()
	}
	if c.ServicePrincipal == "" {
		c.ServicePrincipal = "HTTP/" + c.Host
	}
}

func defaultCCache() string {
	if env := os.Getenv("KRB5CCNAME"); env != "" {
		return strings.TrimPrefix(env, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// Validate checks the settings once, before any request is made.
func (c Config) Validate() error {
	if bool(c.UseSSL) {
		for _, req := range []struct{ key, val string }{
			{"ssl_ca", c.SSLCA},
			{"ssl_cert", c.SSLCert},
			{"ssl_private_key", c.SSLPrivateKey},
		} {
			if req.val == "" {
				return fmt.Errorf("%w: %s is required when use_ssl is set", ErrMissingCredential, req.key)
			}
		}
		if bool(c.UseNegotiatedAuth) {
			return fmt.Errorf("%w: use_ssl and use_negotiated_auth are mutually exclusive", ErrInvalid)
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if _, err := strconv.Atoi(c.APIVersion); err != nil {
		return fmt.Errorf("%w: api_version %q is not a number", ErrInvalid, c.APIVersion)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalid)
	}
	return nil
}

// Scheme is https when TLS is enabled, http otherwise.
func (c Config) Scheme() string {
	if bool(c.UseSSL) {
		return "https"
	}
	return "http"
}

// BaseURL is the scheme, host and port of the inventory service.
func (c Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Scheme(), c.Host, c.Port)
}

// Load finds and loads the config file, or returns defaults if none found.
func Load() (Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return Default(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, path, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	return cfg, path, err
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// FindConfigPath returns the first existing config file, or "".
func FindConfigPath() string {
	if env := os.Getenv("HOSTSCOPE_CONFIG"); env != "" {
		if fileExists(env) {
			return env
		}
	}

	candidates := []string{"hostscope.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "hostscope", "config.yaml"))
	}
	candidates = append(candidates, "/etc/hostscope/config.yaml")

	for _, p := range candidates {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
