package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Host != "localhost" || cfg.Port != 8080 || cfg.APIVersion != "3" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Timeout.Duration() != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Timeout.Duration())
	}
	if bool(cfg.UseSSL) || bool(cfg.UseNegotiatedAuth) {
		t.Error("TLS and negotiated auth should be off by default")
	}
	if cfg.ServicePrincipal != "HTTP/localhost" {
		t.Errorf("service principal = %q", cfg.ServicePrincipal)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestParseFlag(t *testing.T) {
	tests := map[string]Flag{
		"y": true, "yes": true, "Y": true, "1": true, "true": true, "t": true,
		"n": false, "no": false, "0": false, "false": false, "": false,
	}
	for in, want := range tests {
		if got := ParseFlag(in); got != want {
			t.Errorf("ParseFlag(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
host: puppetdb.your.com
port: 8081
use_ssl: y
ssl_ca: /etc/ssl/ca.pem
ssl_cert: /etc/ssl/host.pem
ssl_private_key: /etc/ssl/host.key
api_version: "4"
timeout: 5s
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Host != "puppetdb.your.com" || cfg.Port != 8081 || !bool(cfg.UseSSL) {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.APIVersion != "4" || cfg.Timeout.Duration() != 5*time.Second {
		t.Errorf("unexpected api/timeout: %q %v", cfg.APIVersion, cfg.Timeout.Duration())
	}
	if cfg.BaseURL() != "https://puppetdb.your.com:8081" {
		t.Errorf("BaseURL = %q", cfg.BaseURL())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParse_YAMLBooleans(t *testing.T) {
	cfg, err := Parse([]byte("use_negotiated_auth: true\ntimeout: 10\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bool(cfg.UseNegotiatedAuth) {
		t.Error("expected negotiated auth to be enabled")
	}
	if cfg.Timeout.Duration() != 10*time.Second {
		t.Errorf("bare integer timeout = %v, want 10s", cfg.Timeout.Duration())
	}
}

func TestValidate_MissingCredential(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		key  string
	}{
		{"no ca", Config{UseSSL: true}, "ssl_ca"},
		{"no cert", Config{UseSSL: true, SSLCA: "ca.pem"}, "ssl_cert"},
		{"no key", Config{UseSSL: true, SSLCA: "ca.pem", SSLCert: "cert.pem"}, "ssl_private_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.applyDefaults()
			err := cfg.Validate()
			if !errors.Is(err, ErrMissingCredential) {
				t.Fatalf("expected ErrMissingCredential, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []Config{
		{Port: 70000},
		{APIVersion: "v4"},
		{UseSSL: true, UseNegotiatedAuth: true, SSLCA: "a", SSLCert: "b", SSLPrivateKey: "c"},
	}
	for _, cfg := range tests {
		cfg.applyDefaults()
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalid", cfg, err)
		}
	}
}

func TestFromPluginConf(t *testing.T) {
	cfg, err := FromPluginConf(map[string]string{
		"discovery.puppetdb.use_ssl":         "y",
		"discovery.puppetdb.host":            "host.your.com",
		"discovery.puppetdb.port":            "8081",
		"discovery.puppetdb.ssl_ca":          "certs/ca.pem",
		"discovery.puppetdb.ssl_cert":        "certs/host.your.com.cert.pem",
		"discovery.puppetdb.ssl_private_key": "certs/host.your.com.pem",
		"discovery.puppetdb.api_version":     "4",
		"unrelated.key":                      "ignored",
	})
	if err != nil {
		t.Fatalf("FromPluginConf: %v", err)
	}
	if !bool(cfg.UseSSL) || cfg.Host != "host.your.com" || cfg.Port != 8081 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.SSLCA != "certs/ca.pem" || cfg.SSLCert != "certs/host.your.com.cert.pem" || cfg.SSLPrivateKey != "certs/host.your.com.pem" {
		t.Errorf("unexpected TLS paths: %+v", cfg)
	}
	if cfg.APIVersion != "4" {
		t.Errorf("api version = %q", cfg.APIVersion)
	}
}

func TestFromPluginConf_Defaults(t *testing.T) {
	cfg, err := FromPluginConf(map[string]string{})
	if err != nil {
		t.Fatalf("FromPluginConf: %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != 8080 || bool(cfg.UseSSL) {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestFromPluginConf_BadPort(t *testing.T) {
	_, err := FromPluginConf(map[string]string{"discovery.puppetdb.port": "http"})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostscope.yaml")
	if err := os.WriteFile(path, []byte("host: inventory.local\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, got, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if got != path || cfg.Host != "inventory.local" || cfg.Port != 8080 {
		t.Errorf("unexpected result: %q %+v", got, cfg)
	}
}

func TestFindConfigPath_Env(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOSTSCOPE_CONFIG", path)
	if got := FindConfigPath(); got != path {
		t.Errorf("FindConfigPath = %q, want %q", got, path)
	}
}
