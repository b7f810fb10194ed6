package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the index, the embedding cache, or both",
		Long:  "Without flags, clear removes every indexed document and every cached embedding. Pass --index or --cache to clear just one.",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}

	cmd.Flags().Bool("index", false, "clear only the document index")
	cmd.Flags().Bool("cache", false, "clear only the embedding cache")

	return cmd
}

func runClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := wireApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	clearIndex, _ := cmd.Flags().GetBool("index")
	clearCache, _ := cmd.Flags().GetBool("cache")
	if !clearIndex && !clearCache {
		clearIndex, clearCache = true, true
	}

	out := cmd.OutOrStdout()
	if clearIndex {
		if err := a.engine.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Index cleared")
	}
	if clearCache {
		if err := a.embeds.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Cache cleared")
	}
	return nil
}
