package spritemill

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/haldre/spritemill/pixel"
)

// frameJob pairs a buffer with its position so concurrent workers can write
// results without coordination.
type frameJob struct {
	index  int
	buffer pixel.Buffer
}

func generateJobs(ctx context.Context, buffers []pixel.Buffer) (<-chan frameJob, <-chan error) {
	out := make(chan frameJob)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for i, b := range buffers {
			select {
			case out <- frameJob{index: i, buffer: b}:
			case <-ctx.Done():
				errc <- errors.New("processing cancelled")
				return
			}
		}
	}()
	return out, errc
}

// processWorker drains jobs, writing each result to its own slot. Each worker
// owns a private copy of its buffer, so no locking is needed; the first
// failure is terminal for that worker.
func processWorker(in <-chan frameJob, results []*Result, opts Options) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for job := range in {
			r, err := Process(job.buffer, opts)
			if err != nil {
				errc <- err
				return
			}
			results[job.index] = r
		}
	}()
	return errc
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// ProcessAll runs the pipeline over independent frames concurrently and
// returns the results in input order. Any frame failure fails the batch.
func ProcessAll(ctx context.Context, buffers []pixel.Buffer, opts Options) ([]*Result, error) {
	if len(buffers) == 0 {
		return nil, errors.New("spritemill: no frames to process")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*Result, len(buffers))

	jobs, errc := generateJobs(ctx, buffers)
	errcList := []<-chan error{errc}

	workers := runtime.NumCPU()
	if workers > len(buffers) {
		workers = len(buffers)
	}
	for i := 0; i < workers; i++ {
		errcList = append(errcList, processWorker(jobs, results, opts))
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}
	return results, nil
}
