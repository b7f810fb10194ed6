package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents indexed")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSOURCE\tCHUNKS\tADDED")
	for _, d := range docs {
		n, err := a.engine.ChunkCount(ctx, d.ID)
		if err != nil {
			return err
		}
		added := time.Unix(d.CreatedAt, 0).Format("2006-01-02 15:04")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Title, d.Source, n, added)
	}
	return tw.Flush()
}
