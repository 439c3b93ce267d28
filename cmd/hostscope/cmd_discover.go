package main

import (
	"github.com/spf13/cobra"

	"hostscope/internal/format"
)

var discoverFlags struct {
	filterFlags
	format string
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Print the hosts matching a filter",
	Long: `Resolves fact (-F), class (-C) and identity (-I) filters against the
inventory service and prints one matching host per line.

Facts are combined with AND in a single nodes query. Classes are fetched in
one resources query and a host must carry every class. Identities match node
names exactly, or as a regular expression when written /like this/. The three
groups are intersected; with no filter at all every node is printed.`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverFlags.register(discoverCmd)
	discoverCmd.Flags().StringVar(&discoverFlags.format, "format", "text", "Output format: text, json, table or markdown")
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(discoverFlags.format)
	if err != nil {
		return usageError{err}
	}
	f, err := discoverFlags.filter()
	if err != nil {
		return err
	}
	d, err := newDiscoverer(nil)
	if err != nil {
		return err
	}

	hosts, err := d.Discover(cmd.Context(), f)
	if err != nil {
		return err
	}
	return format.WriteHosts(cmd.OutOrStdout(), hosts, mode)
}
