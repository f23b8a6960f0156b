// Package jobs provides the in-process job queue that drives library scans
// and file imports. Jobs run on a single dedicated worker so all catalog
// writes are serialized.
package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chorus/internal/logger"
	"chorus/internal/scanerrors"
)

// JobType identifies the kind of work a job carries
type JobType string

const (
	TypeScanLibrary JobType = "scan_library"
	TypeImportFile  JobType = "import_file"
)

// ErrQueueClosed is returned by Enqueue after Close has been called
var ErrQueueClosed = errors.New("job queue is closed")

// ErrJobExhausted indicates a job failed on its final attempt and was dropped
var ErrJobExhausted = scanerrors.ErrJobExhausted

// Payload carries the job parameters
type Payload struct {
	ScanRunID string   `json:"scan_run_id,omitempty"`
	Paths     []string `json:"paths,omitempty"`
	FilePath  string   `json:"file_path,omitempty"`
}

// Job is a unit of queued work. Attempts counts failed runs so far.
type Job struct {
	ID          string
	Type        JobType
	Payload     Payload
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
}

// HandlerFunc processes a job. A non-nil error triggers retry with backoff
// until the job's attempts are exhausted.
type HandlerFunc func(job *Job) error

// ExhaustedFunc is called when a job has failed its final attempt
type ExhaustedFunc func(job *Job, err error)

// Options configures a Queue
type Options struct {
	// MaxAttempts is the default number of runs a job gets before it is
	// dropped. Defaults to 3.
	MaxAttempts int

	// BackoffBase scales the retry delay: a job that has failed n times is
	// requeued after BackoffBase * 2^n. Defaults to one second.
	BackoffBase time.Duration

	// OnExhausted is invoked after a job fails its final attempt
	OnExhausted ExhaustedFunc
}

// Queue is a FIFO job queue with a single worker goroutine. While a job
// runs, no second job is pulled.
type Queue struct {
	mu       sync.Mutex
	pending  []*Job
	handlers map[JobType]HandlerFunc
	timers   map[*time.Timer]struct{}
	closed   bool

	maxAttempts int
	backoffBase time.Duration
	onExhausted ExhaustedFunc

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewQueue creates a queue and starts its worker loop
func NewQueue(opts Options) *Queue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}

	q := &Queue{
		handlers:    make(map[JobType]HandlerFunc),
		timers:      make(map[*time.Timer]struct{}),
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		onExhausted: opts.OnExhausted,
		wake:        make(chan struct{}, 1),
	}

	q.wg.Add(1)
	go q.run()

	return q
}

// Handle registers the handler for a job type. Handlers must be registered
// before jobs of that type are enqueued.
func (q *Queue) Handle(jobType JobType, handler HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue appends a job to the tail of the queue
func (q *Queue) Enqueue(jobType JobType, payload Payload) (*Job, error) {
	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     payload,
		MaxAttempts: q.maxAttempts,
		CreatedAt:   time.Now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	q.signal()
	return job, nil
}

// Len returns the number of jobs waiting to run
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting new jobs, cancels pending retry timers, and waits
// for the worker to drain the queue. An in-flight job finishes naturally.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for timer := range q.timers {
		timer.Stop()
	}
	q.timers = make(map[*time.Timer]struct{})
	q.mu.Unlock()

	q.signal()
	q.wg.Wait()

	logger.Info("Job queue closed")
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// run is the single worker loop. It blocks on the wake channel when the
// queue is empty instead of polling on a timer.
func (q *Queue) run() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		job := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.process(job)
	}
}

func (q *Queue) process(job *Job) {
	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()

	if !ok {
		logger.Error("No handler registered for job type %s, dropping job %s", job.Type, job.ID)
		return
	}

	err := handler(job)
	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= job.MaxAttempts {
		logger.Error("Job %s (%s) failed permanently after %d attempts: %v",
			job.ID, job.Type, job.Attempts, err)
		if q.onExhausted != nil {
			q.onExhausted(job, fmt.Errorf("%w: %v", ErrJobExhausted, err))
		}
		return
	}

	delay := q.backoffDelay(job.Attempts)
	logger.Warn("Job %s (%s) failed (attempt %d/%d), retrying in %s: %v",
		job.ID, job.Type, job.Attempts, job.MaxAttempts, delay, err)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		logger.Warn("Queue closed, dropping retry of job %s", job.ID)
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.requeue(job, timer)
	})
	q.timers[timer] = struct{}{}
	q.mu.Unlock()
}

func (q *Queue) requeue(job *Job, timer *time.Timer) {
	q.mu.Lock()
	delete(q.timers, timer)
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	q.signal()
}

// backoffDelay returns BackoffBase * 2^attempts
func (q *Queue) backoffDelay(attempts int) time.Duration {
	if attempts > 16 {
		attempts = 16
	}
	return q.backoffBase * time.Duration(1<<uint(attempts))
}
