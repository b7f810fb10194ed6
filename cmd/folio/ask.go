package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Retrieve the passages most relevant to a question",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().Int("top-k", 0, "number of passages to return (default from config)")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := wireApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		topK = a.cfg.Retrieval.TopK
	}

	results, err := a.engine.Ask(ctx, args[0], topK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching passages")
		return nil
	}

	docs, err := a.engine.Documents(ctx, 0)
	if err != nil {
		return err
	}
	sources := make(map[string]string, len(docs))
	for _, d := range docs {
		sources[d.ID] = d.Source
	}

	for i, sc := range results {
		source := sources[sc.DocumentID]
		if source == "" {
			source = sc.DocumentID
		}
		fmt.Fprintf(out, "%d. [%.3f] %s\n%s\n\n", i+1, sc.Score, source, sc.Content)
	}
	return nil
}
