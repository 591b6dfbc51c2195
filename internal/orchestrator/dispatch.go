package orchestrator

import (
	"context"
	"sync"
	"time"
)

// pollInterval is how often an idle worker checks the queue for new work
// when PopNext finds it empty.
const pollInterval = 200 * time.Millisecond

// RunWorkers starts n goroutines pulling jobs off the priority queue and
// executing them, implementing the spec's "parallel workers" concurrency
// model (§5) rather than a single-threaded cooperative loop. It blocks
// until ctx is cancelled, then waits for in-flight jobs to finish.
func (o *Orchestrator) RunWorkers(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			o.workerLoop(ctx)
		}()
	}
	wg.Wait()
}

func (o *Orchestrator) workerLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, ok := o.queue.PopNext()
			if !ok {
				continue
			}
			if err := o.ExecuteJob(ctx, job.ID); err != nil {
				o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("job execution returned an error")
			}
		}
	}
}
