// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parallel

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"modernc.org/mathutil"
)

const chanSize = 1024

/* Parallel Schedulers */

// Parallel schedules and runs jobs in parallel. nJobs is the number of jobs, nWorkers is
// the number of executors. worker is called with the id of the executor (in [0, nWorkers))
// and the id of the job (in [0, nJobs)), so callers may keep per-worker accumulators
// indexed by workerId without locking. The ctx argument allows callers to cancel
// outstanding work.
func Parallel(ctx context.Context, nJobs, nWorkers int, worker func(workerId, jobId int) error) error {
	if nWorkers <= 1 {
		for i := 0; i < nJobs; i++ {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
			if err := worker(0, i); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	}
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c := make(chan int, chanSize)
	// producer
	go func() {
		defer close(c)
		for i := 0; i < nJobs; i++ {
			select {
			case <-jobCtx.Done():
				return
			case c <- i:
			}
		}
	}()
	// consumer
	var wg sync.WaitGroup
	errs := make([]error, nJobs)
	for j := 0; j < nWorkers; j++ {
		workerId := j
		wg.Go(func() {
			for {
				select {
				case <-jobCtx.Done():
					return
				case jobId, ok := <-c:
					if !ok {
						return
					}
					// run job
					if err := worker(workerId, jobId); err != nil {
						errs[jobId] = err
						cancel()
						return
					}
				}
			}
		})
	}
	wg.Wait()
	// check errors
	for _, err := range errs {
		if err != nil {
			return errors.Trace(err)
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Range is a half-open interval [Begin, End) of job ids.
type Range struct {
	Begin int
	End   int
}

// Len returns the number of ids in the range.
func (r Range) Len() int {
	return r.End - r.Begin
}

// SplitRange splits [0, n) into at most nChunks contiguous ranges and keeps the order.
func SplitRange(n, nChunks int) []Range {
	if n <= 0 {
		return nil
	}
	nChunks = mathutil.Max(1, mathutil.Min(nChunks, n))
	minChunkSize := n / nChunks
	maxChunkNum := n % nChunks
	chunks := make([]Range, nChunks)
	for i, begin := 0, 0; i < nChunks; i++ {
		chunkSize := minChunkSize
		if i < maxChunkNum {
			chunkSize++
		}
		chunks[i] = Range{Begin: begin, End: begin + chunkSize}
		begin += chunkSize
	}
	return chunks
}
