package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"hostscope/internal/config"
	"hostscope/internal/discovery"
	"hostscope/internal/filter"
	"hostscope/internal/inventory"
	"hostscope/internal/logging"
	"hostscope/internal/metrics"
	"hostscope/internal/query"
)

// Exit codes.
const (
	exitFailure = 1
	exitConfig  = 2
	exitUsage   = 64
)

func initLogging(cmd *cobra.Command, _ []string) error {
	logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat, cmd.ErrOrStderr())
	return nil
}

// loadConfig reads the config file or plugin conf and applies flag overrides.
func loadConfig() (config.Config, error) {
	var (
		cfg  config.Config
		path string
		err  error
	)
	switch {
	case rootFlags.pluginConf != "":
		path = rootFlags.pluginConf
		cfg, err = loadPluginConf(path)
	case rootFlags.configPath != "":
		cfg, path, err = config.LoadFromPath(rootFlags.configPath)
	default:
		cfg, path, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		logging.New("cli").Debug("loaded config", "path", path)
	}

	if rootFlags.host != "" {
		if cfg.ServicePrincipal == "HTTP/"+cfg.Host {
			cfg.ServicePrincipal = "HTTP/" + rootFlags.host
		}
		cfg.Host = rootFlags.host
	}
	if rootFlags.port != 0 {
		cfg.Port = rootFlags.port
	}
	if rootFlags.apiVersion != "" {
		cfg.APIVersion = rootFlags.apiVersion
	}
	if rootFlags.timeout != "" {
		d, err := config.ParseDuration(rootFlags.timeout)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: --timeout %q: %v", config.ErrInvalid, rootFlags.timeout, err)
		}
		cfg.Timeout = config.Duration(d)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// loadPluginConf reads "key = value" lines; blank lines and lines starting
// with # are skipped.
func loadPluginConf(path string) (config.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("read plugin conf: %w", err)
	}
	defer f.Close()

	conf := make(map[string]string)
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, val, ok := strings.Cut(text, "=")
		if !ok {
			return config.Config{}, fmt.Errorf("%w: %s:%d: expected key = value", config.ErrInvalid, path, line)
		}
		conf[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	if err := sc.Err(); err != nil {
		return config.Config{}, fmt.Errorf("read plugin conf: %w", err)
	}
	return config.FromPluginConf(conf)
}

// newDiscoverer builds the inventory client and discoverer from flags and
// config. reg may be nil.
func newDiscoverer(reg prometheus.Registerer) (*discovery.Discoverer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}
	client, err := inventory.New(cfg,
		inventory.WithLogger(logging.New("inventory")),
		inventory.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	logging.New("cli").Debug("inventory client ready",
		"url", cfg.BaseURL(), "transport", client.TransportName(), "api_version", client.APIVersion())

	return discovery.New(client, discovery.WithMetrics(m)), nil
}

// newPlanner builds a discoverer for explain. Only the config is loaded; no
// transport is set up, so credentials need not be present.
func newPlanner() (*discovery.Discoverer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return discovery.New(offlineInventory{apiVersion: cfg.APIVersion}), nil
}

// offlineInventory answers the API version and refuses every query.
type offlineInventory struct{ apiVersion string }

func (o offlineInventory) APIVersion() string { return o.apiVersion }

func (offlineInventory) Query(context.Context, query.Endpoint, query.Node) ([]inventory.Record, error) {
	return nil, errors.New("inventory is not contacted when explaining")
}

// filterFlags are shared by discover and explain.
type filterFlags struct {
	facts      []string
	classes    []string
	identities []string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVarP(&ff.facts, "fact", "F", nil, "Fact filter, e.g. osfamily=Debian or memorysize_mb>=1024 (repeatable)")
	f.StringArrayVarP(&ff.classes, "class", "C", nil, "Class filter; /regex/ matches titles (repeatable)")
	f.StringArrayVarP(&ff.identities, "identity", "I", nil, "Identity filter; /regex/ matches node names (repeatable)")
}

func (ff *filterFlags) filter() (filter.Filter, error) {
	facts, err := filter.ParseFacts(ff.facts)
	if err != nil {
		return filter.Filter{}, usageError{err}
	}
	return filter.Filter{Facts: facts, Classes: ff.classes, Identities: ff.identities}, nil
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var ue usageError
	switch {
	case errors.As(err, &ue), errors.Is(err, query.ErrInvalidPattern):
		return exitUsage
	case errors.Is(err, config.ErrInvalid), errors.Is(err, config.ErrMissingCredential),
		inventory.IsConfiguration(err):
		return exitConfig
	}
	return exitFailure
}
