package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	taskdomain "pmchat-backend/internal/task/domain"
)

const (
	linkageMaxAttempts = 5
	linkageJobTimeout  = 10 * time.Second
)

// LinkageJob is a linkage attempt that failed on the store and is retried
// in the background
type LinkageJob struct {
	Ref     taskdomain.StageRef
	Unlink  bool
	Attempt int
}

// LinkageRetryWorker re-runs failed linkage updates with backoff
type LinkageRetryWorker struct {
	updater     *LinkageUpdater
	jobQueue    chan LinkageJob
	workerWg    sync.WaitGroup
	workerCount int
	backoff     time.Duration
	started     bool
	stopped     bool
	mu          sync.RWMutex
}

// NewLinkageRetryWorker creates a new retry worker pool
func NewLinkageRetryWorker(updater *LinkageUpdater, workerCount int) *LinkageRetryWorker {
	if workerCount <= 0 {
		workerCount = 2
	}

	return &LinkageRetryWorker{
		updater:     updater,
		jobQueue:    make(chan LinkageJob, 500),
		workerCount: workerCount,
		backoff:     500 * time.Millisecond,
	}
}

// Start starts the retry workers
func (w *LinkageRetryWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.stopped {
		return
	}

	for i := 0; i < w.workerCount; i++ {
		w.workerWg.Add(1)
		go w.worker(i)
	}
	w.started = true
	log.Printf("[LinkageWorker] Started %d workers", w.workerCount)
}

// Stop drains the queue and waits for the workers. Retries scheduled after
// Stop are dropped.
func (w *LinkageRetryWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.jobQueue)
	w.mu.Unlock()

	w.workerWg.Wait()
	log.Println("[LinkageWorker] All workers stopped")
}

func (w *LinkageRetryWorker) worker(id int) {
	defer w.workerWg.Done()

	for job := range w.jobQueue {
		w.processJob(job)
	}

	log.Printf("[LinkageWorker] Worker %d stopped", id)
}

func (w *LinkageRetryWorker) processJob(job LinkageJob) {
	ctx, cancel := context.WithTimeout(context.Background(), linkageJobTimeout)
	defer cancel()

	var result taskdomain.LinkageResult
	if job.Unlink {
		result = w.updater.UnlinkTask(ctx, job.Ref.ProjectID, job.Ref.TaskID)
	} else {
		result = w.updater.UpdateProjectStage(ctx, job.Ref)
	}

	if !result.Retryable() {
		log.Printf("[LinkageWorker] Attempt %d: %s", job.Attempt, result)
		return
	}

	if job.Attempt >= linkageMaxAttempts {
		log.Printf("[LinkageWorker] Giving up after %d attempts: %s", job.Attempt, result)
		return
	}

	next := job
	next.Attempt++
	delay := w.backoff * time.Duration(1<<uint(job.Attempt-1))
	time.AfterFunc(delay, func() {
		if !w.enqueue(next) {
			log.Printf("[LinkageWorker] Dropped retry for task %s", next.Ref.TaskID)
		}
	})
}

// QueueLink schedules a retry of UpdateProjectStage (non-blocking)
func (w *LinkageRetryWorker) QueueLink(ref taskdomain.StageRef) bool {
	return w.enqueue(LinkageJob{Ref: ref, Attempt: 1})
}

// QueueUnlink schedules a retry of UnlinkTask (non-blocking)
func (w *LinkageRetryWorker) QueueUnlink(ref taskdomain.StageRef) bool {
	return w.enqueue(LinkageJob{Ref: ref, Unlink: true, Attempt: 1})
}

func (w *LinkageRetryWorker) enqueue(job LinkageJob) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return false
	}
	select {
	case w.jobQueue <- job:
		return true
	default:
		return false // Queue full
	}
}
