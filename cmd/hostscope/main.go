// hostscope resolves host filters against an inventory service.
//
// Usage:
//
//	hostscope discover -F osfamily=Debian -C apache -I '/^web/'
//	hostscope explain -F 'memorysize_mb>=1024'
//	hostscope serve [--metrics-addr=:9464]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	pluginConf string
	logLevel   string
	logFormat  string
	host       string
	port       int
	apiVersion string
	timeout    string
}

var rootCmd = &cobra.Command{
	Use:   "hostscope",
	Short: "Discover hosts by fact, class and identity",
	Long: "hostscope translates fact, class and identity filters into inventory\n" +
		"queries and prints the hosts that match all of them.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "Path to a YAML config file (default: search $HOSTSCOPE_CONFIG, ./hostscope.yaml, ...)")
	f.StringVar(&rootFlags.pluginConf, "plugin-conf", "", "Path to a key = value file with discovery.puppetdb.* settings")
	f.StringVar(&rootFlags.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	f.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json")
	f.StringVar(&rootFlags.host, "host", "", "Inventory host (overrides config)")
	f.IntVar(&rootFlags.port, "port", 0, "Inventory port (overrides config)")
	f.StringVar(&rootFlags.apiVersion, "api-version", "", "Inventory API version (overrides config)")
	f.StringVar(&rootFlags.timeout, "timeout", "", "Request timeout, e.g. 30s or 30 (overrides config)")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "hostscope", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
