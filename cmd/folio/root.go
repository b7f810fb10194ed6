package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root folio command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "folio",
		Short: "Ingest documents and ask questions over them",
		Long: "Folio ingests text, Markdown, HTML and PDF files into a vector index\n" +
			"and retrieves the passages most relevant to a question. Settings come\n" +
			"from an optional TOML file and FOLIO_* environment variables.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to TOML config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newUploadCmd(),
		newAskCmd(),
		newListCmd(),
		newStatsCmd(),
		newClearCmd(),
	)

	return root
}
