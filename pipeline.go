package catpng

import (
	"context"
	"fmt"
	"sync"
)

// decodeWorkers bounds how many inputs are decompressed at once.
const decodeWorkers = 4

// decodedInput is one input's parsed header and decompressed
// scanline bytes, held until every input has been validated.
type decodedInput struct {
	header ImageHeader
	raw    []byte
}

type decodeJob struct {
	index int
	input Input
}

func (c *CatPNG) queueInputs(ctx context.Context, inputs []Input) (<-chan decodeJob, <-chan error) {
	out := make(chan decodeJob)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for i, input := range inputs {
			select {
			case out <- decodeJob{index: i, input: input}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

// decodeWorker decodes jobs from in, storing each result at its input
// index so that the final concatenation order never depends on
// completion order.
func (c *CatPNG) decodeWorker(in <-chan decodeJob, results []*decodedInput) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for job := range in {
			d, err := c.decodeInput(job.index, job.input)
			if err != nil {
				errc <- fmt.Errorf("input %d (%s): %w", job.index, job.input.Name, err)
				return
			}
			results[job.index] = d
		}
	}()
	return errc
}

// decodeAll decodes every input, up to decodeWorkers at a time, and
// returns the results in input order.
func (c *CatPNG) decodeAll(inputs []Input) ([]*decodedInput, error) {
	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	results := make([]*decodedInput, len(inputs))

	jobs, errc := c.queueInputs(ctx, inputs)
	errcList := []<-chan error{errc}

	workers := decodeWorkers
	if len(inputs) < workers {
		workers = len(inputs)
	}
	for i := 0; i < workers; i++ {
		errcList = append(errcList, c.decodeWorker(jobs, results))
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}

	return results, nil
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
