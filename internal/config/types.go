package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Flag is a boolean that also accepts the bool-like strings used by plugin
// configuration: any value starting with 1, y or t is true.
type Flag bool

// ParseFlag interprets a bool-like string.
func ParseFlag(s string) Flag {
	s = strings.ToLower(strings.TrimSpace(s))
	return Flag(strings.HasPrefix(s, "1") || strings.HasPrefix(s, "y") || strings.HasPrefix(s, "t"))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar flag", node.Line)
	}
	*f = ParseFlag(node.Value)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (f Flag) MarshalYAML() (interface{}, error) {
	return bool(f), nil
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler. Bare integers are seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a duration", node.Line)
	}
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ParseDuration accepts a Go duration string or a bare number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// PluginPrefix is the key prefix of the flat plugin configuration.
const PluginPrefix = "discovery.puppetdb."

// FromPluginConf builds a Config from flat key/value pairs such as
// "discovery.puppetdb.host". Keys without the prefix are ignored.
func FromPluginConf(conf map[string]string) (Config, error) {
	var cfg Config
	for key, val := range conf {
		name, ok := strings.CutPrefix(key, PluginPrefix)
		if !ok {
			continue
		}
		switch name {
		case "host":
			cfg.Host = val
		case "port":
			port, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("%w: port %q: %v", ErrInvalid, val, err)
			}
			cfg.Port = port
		case "use_ssl":
			cfg.UseSSL = ParseFlag(val)
		case "use_negotiated_auth":
			cfg.UseNegotiatedAuth = ParseFlag(val)
		case "ssl_ca":
			cfg.SSLCA = val
		case "ssl_cert":
			cfg.SSLCert = val
		case "ssl_private_key":
			cfg.SSLPrivateKey = val
		case "api_version":
			cfg.APIVersion = val
		case "timeout":
			d, err := ParseDuration(val)
			if err != nil {
				return Config{}, fmt.Errorf("%w: timeout %q: %v", ErrInvalid, val, err)
			}
			cfg.Timeout = Duration(d)
		case "krb5_config":
			cfg.Krb5Config = val
		case "krb5_ccache":
			cfg.Krb5CCache = val
		case "service_principal":
			cfg.ServicePrincipal = val
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}
