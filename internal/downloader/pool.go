package downloader

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"inatscraper/pkg/logger"
)

// Job is one asset to fetch. Sequence and Tag are carried through to the
// Result untouched so the submitter can match them up.
type Job struct {
	URL      string
	Dest     string
	Sequence int
	Tag      interface{}
}

// JobResult pairs a Job with its fetch outcome
type JobResult struct {
	Job Job
	Result
}

// AssetFetcher is what the pool workers call for each job
type AssetFetcher interface {
	Fetch(ctx context.Context, url, dest string) Result
}

// WorkerPool runs a fixed number of fetch workers. Jobs go in through
// Submit and results come out of Results; Close waits for the workers.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan JobResult
	fetcher     AssetFetcher
	logger      logger.Logger

	group     *errgroup.Group
	ctx       context.Context
	closeOnce sync.Once
}

// NewWorkerPool starts numWorkers workers bound to ctx
func NewWorkerPool(ctx context.Context, numWorkers int, fetcher AssetFetcher, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	group, gctx := errgroup.WithContext(ctx)
	wp := &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan JobResult, numWorkers),
		fetcher:     fetcher,
		logger:      log.WithField("component", "worker_pool"),
		group:       group,
		ctx:         gctx,
	}

	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": numWorkers,
	})
	for i := 0; i < numWorkers; i++ {
		id := i
		group.Go(func() error {
			return wp.worker(id)
		})
	}
	return wp
}

// Submit queues a job. It blocks while the queue is full and fails once
// the pool context is done.
func (wp *WorkerPool) Submit(job Job) error {
	if err := wp.ctx.Err(); err != nil {
		return fmt.Errorf("worker pool is shutting down: %w", err)
	}
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the channel results are delivered on. It is closed by Close.
func (wp *WorkerPool) Results() <-chan JobResult {
	return wp.resultQueue
}

// Close stops accepting jobs, waits for in-flight jobs and closes Results.
// Callers must keep draining Results until it is closed.
func (wp *WorkerPool) Close() error {
	var err error
	wp.closeOnce.Do(func() {
		close(wp.jobQueue)
		err = wp.group.Wait()
		close(wp.resultQueue)
		wp.logger.Debug("Worker pool stopped")
	})
	return err
}

// Size returns the number of workers
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

func (wp *WorkerPool) worker(id int) error {
	for job := range wp.jobQueue {
		if err := wp.ctx.Err(); err != nil {
			return err
		}

		res := wp.fetcher.Fetch(wp.ctx, job.URL, job.Dest)

		select {
		case wp.resultQueue <- JobResult{Job: job, Result: res}:
		case <-wp.ctx.Done():
			return wp.ctx.Err()
		}
	}

	wp.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
	return wp.ctx.Err()
}
