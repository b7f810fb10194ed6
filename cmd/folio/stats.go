package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index and cache statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := wireApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.engine.Documents(ctx, 0)
	if err != nil {
		return err
	}
	chunks, err := a.engine.Count(ctx)
	if err != nil {
		return err
	}
	stats := a.embeds.Stats(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Documents:  %d\n", len(docs))
	fmt.Fprintf(out, "Chunks:     %d\n", chunks)
	fmt.Fprintf(out, "Cache:      %d in memory, %d persistent\n",
		stats.MemoryItems, stats.PersistentItems)
	return nil
}
