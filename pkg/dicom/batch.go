package dicom

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ThalesMMS/dicom-decoder/pkg/pool"
)

// DefaultBatchConcurrency caps in-flight decodes when the caller does not
// say otherwise.
const DefaultBatchConcurrency = 4

// BatchSource is one input to a batch decode: a path or an in-memory file
// image. Path wins when both are set.
type BatchSource struct {
	Path string
	Data []byte
}

// BatchResult is the outcome for one source. Results preserve input order
// regardless of completion order. Exactly one of Decoder/Err is set, except
// for cancelled items which carry the context error and no decoder.
type BatchResult struct {
	ID      string
	Source  BatchSource
	Decoder *Decoder
	Err     error
}

// BatchOptions tunes a batch decode.
type BatchOptions struct {
	// Concurrency caps in-flight decodes. Zero or negative means
	// DefaultBatchConcurrency.
	Concurrency int

	// Pool is shared by every decoder in the batch. Nil means pool.Default.
	Pool *pool.Pool
}

// DecodeBatch decodes every source with bounded concurrency. One corrupt
// file fails its own slot only; siblings decode normally. Cancelling ctx
// stops unstarted items and marks them with the context error. Pool state
// stays consistent either way: a decoder that completed holds its buffers,
// one that never started holds nothing.
func DecodeBatch(ctx context.Context, sources []BatchSource, opts BatchOptions) []BatchResult {
	results := make([]BatchResult, len(sources))

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, src := range sources {
		results[i] = BatchResult{ID: uuid.NewString(), Source: src}

		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			dec := NewDecoder(opts.Pool)
			var err error
			if src.Path != "" {
				err = dec.Load(src.Path)
			} else {
				err = dec.LoadBytes(src.Data)
			}
			if err != nil {
				// Failed decoders hold no pool-backed buffers; per-item
				// failure never poisons the shared pool.
				results[i].Err = err
				return nil
			}
			results[i].Decoder = dec
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes completion.
	_ = g.Wait()
	return results
}
