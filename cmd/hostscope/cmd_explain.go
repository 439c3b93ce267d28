package main

import (
	"github.com/spf13/cobra"

	"hostscope/internal/format"
)

var explainFlags struct {
	filterFlags
	format string
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show the inventory queries a discover call would send",
	Long: `Prints the endpoint and query of every request discover would make for
the same filter flags. Nothing is sent to the inventory service.`,
	Args: cobra.NoArgs,
	RunE: runExplain,
}

func init() {
	explainFlags.register(explainCmd)
	explainCmd.Flags().StringVar(&explainFlags.format, "format", "text", "Output format: text, json, table or markdown")
}

func runExplain(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(explainFlags.format)
	if err != nil {
		return usageError{err}
	}
	f, err := explainFlags.filter()
	if err != nil {
		return err
	}
	d, err := newPlanner()
	if err != nil {
		return err
	}
	return format.WritePlans(cmd.OutOrStdout(), d.Explain(f), mode)
}
