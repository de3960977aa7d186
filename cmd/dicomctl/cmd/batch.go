package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom"
	"github.com/ThalesMMS/dicom-decoder/pkg/pool"
)

// NewBatchCmd creates the batch cobra command
func NewBatchCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Decode many DICOM files concurrently",
		Long:  "Decodes every given file with bounded concurrency and prints a per-file status line. One corrupt file does not abort the rest.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			concurrency, _ := cmd.Flags().GetInt("concurrency")

			sources := make([]dicom.BatchSource, len(args))
			for i, path := range args {
				sources[i] = dicom.BatchSource{Path: path}
			}

			results := dicom.DecodeBatch(ctx, sources, dicom.BatchOptions{
				Concurrency: concurrency,
			})

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Printf("%s: FAILED: %v\n", r.Source.Path, r.Err)
					continue
				}
				vs := r.Decoder.Validation()
				fmt.Printf("%s: ok %dx%d (job %s)\n", r.Source.Path, vs.Width, vs.Height, r.ID)
				r.Decoder.Close()
			}

			stats := pool.Default.Stats()
			slog.InfoContext(ctx, "batch complete",
				"files", len(results),
				"failed", failed,
				"poolHits", stats.Hits,
				"poolMisses", stats.Misses,
			)
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.IntP("concurrency", "c", dicom.DefaultBatchConcurrency, "max in-flight decodes")
	return cmd
}
