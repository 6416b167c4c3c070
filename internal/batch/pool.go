package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"streamscout/pkg/logger"
)

// Result is the outcome of one chunk. Index is the chunk's position in the
// input so callers can merge in a stable order.
type Result[R any] struct {
	Index    int
	Size     int
	Value    R
	Err      error
	Duration time.Duration
}

// Pool bounds how many chunks are in flight at once. A failed chunk does not
// cancel its siblings.
type Pool struct {
	workers int
	logger  logger.Logger
}

// NewPool creates a pool running at most workers chunks concurrently.
func NewPool(workers int, log logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Pool{workers: workers, logger: log}
}

// Workers returns the concurrency bound.
func (p *Pool) Workers() int { return p.workers }

// Chunk splits items into consecutive groups of at most size.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Run applies fn to every chunk and returns one Result per chunk, in input
// order. Chunks not started before ctx ends are reported with ctx.Err().
func Run[T, R any](ctx context.Context, p *Pool, chunks [][]T, fn func(ctx context.Context, items []T) (R, error)) []Result[R] {
	results := make([]Result[R], len(chunks))

	var g errgroup.Group
	g.SetLimit(p.workers)

	p.logger.DebugWithFields("Starting batch run", map[string]interface{}{
		"chunks":  len(chunks),
		"workers": p.workers,
	})

	for i, chunk := range chunks {
		results[i] = Result[R]{Index: i, Size: len(chunk)}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			start := time.Now()
			v, err := fn(ctx, chunk)
			results[i].Value = v
			results[i].Err = err
			results[i].Duration = time.Since(start)

			if err != nil {
				p.logger.WithError(err).DebugWithFields("Batch chunk failed", map[string]interface{}{
					"chunk": i,
					"size":  len(chunk),
				})
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
