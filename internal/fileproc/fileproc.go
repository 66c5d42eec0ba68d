// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/diffgrader/diffgrader/pkg/extractor"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Workers resolves a configured worker count, defaulting to 2x NumCPU.
func Workers(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// MapFiles processes files in parallel, calling fn for each file with a
// dedicated extractor. Extractors are pooled and reused across files since
// each wraps a CGO parser that is expensive to create. Results preserve the
// input file order; per-file failures are gathered into the returned
// ProcessingErrors (nil when everything succeeded).
func MapFiles[T any](
	ctx context.Context,
	files []string,
	workers int,
	fn func(context.Context, *extractor.Extractor, string) (T, error),
	onProgress ProgressFunc,
) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	workers = Workers(workers)
	if workers > len(files) {
		workers = len(files)
	}

	extractors := make(chan *extractor.Extractor, workers)
	for i := 0; i < workers; i++ {
		extractors <- extractor.New()
	}

	slots := make([]T, len(files))
	filled := make([]bool, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			defer func() {
				if onProgress != nil {
					onProgress()
				}
			}()

			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return ctx.Err()
			default:
			}

			ext := <-extractors
			defer func() { extractors <- ext }()

			result, err := fn(ctx, ext, path)
			if err != nil {
				errs.Add(path, err)
				return nil
			}

			slots[i] = result
			filled[i] = true
			return nil
		})
	}
	_ = p.Wait()

	close(extractors)
	for ext := range extractors {
		ext.Close()
	}

	results := make([]T, 0, len(files))
	for i := range slots {
		if filled[i] {
			results = append(results, slots[i])
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// ExtractAll parses every file and returns its extracted structure.
func ExtractAll(ctx context.Context, files []string, workers int, onProgress ProgressFunc) ([]*extractor.FileStructure, *ProcessingErrors) {
	return MapFiles(ctx, files, workers, func(ctx context.Context, ext *extractor.Extractor, path string) (*extractor.FileStructure, error) {
		return ext.ExtractFile(ctx, path)
	}, onProgress)
}
