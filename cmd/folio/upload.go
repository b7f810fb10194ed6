package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/foliolabs/folio"
	"github.com/foliolabs/folio/internal/parallel"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Ingest documents into the index",
		Long:  "Read the given txt, md, html, or pdf files, chunk and embed their text, and add them to the index.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runUpload,
	}

	cmd.Flags().Int("jobs", 4, "number of files ingested concurrently")

	return cmd
}

// uploadReport is the per-file outcome. Failures are carried in the
// report rather than returned, so one bad file never cancels the rest.
type uploadReport struct {
	file string
	res  *folio.IngestResult
	err  error
}

func runUpload(cmd *cobra.Command, args []string) error {
	a, err := wireApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	jobs, _ := cmd.Flags().GetInt("jobs")

	reports, err := parallel.Map(cmd.Context(), jobs, args,
		func(ctx context.Context, _ int, path string) (uploadReport, error) {
			content, err := os.ReadFile(path)
			if err != nil {
				return uploadReport{file: path, err: err}, nil
			}
			res, err := a.engine.Ingest(ctx, content, filepath.Base(path))
			return uploadReport{file: path, res: res, err: err}, nil
		})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range reports {
		if r.err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", r.file, r.err)
			continue
		}
		fmt.Fprintf(out, "%s: %d chunks (%d cached) in %s\n",
			r.file, r.res.ChunkCount, r.res.Cached, r.res.Duration.Round(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
