// Package jobqueue tracks long-running bulk operations (playlist imports,
// STRM generation) in memory so HTTP callers can poll progress and request
// cancellation instead of waiting on the request.
package jobqueue

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vrsandeep/antenna-go/internal/models"
	"github.com/vrsandeep/antenna-go/internal/websocket"
)

// Job statuses. A job moves pending -> running -> one of the terminal states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// retentionAge is how long terminal jobs are kept around for polling before
// the sweeper purges them.
const retentionAge = time.Hour

// Job is the mutable progress record of one bulk operation. It lives only in
// memory and is lost on restart.
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Total       int        `json:"total"`
	Processed   int        `json:"processed"`
	Created     int        `json:"created"`
	Updated     int        `json:"updated"`
	Deleted     int        `json:"deleted"`
	Skipped     int        `json:"skipped"`
	Errors      int        `json:"errors"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	// ErrorDetails collects per-item failures without failing the job.
	ErrorDetails []string `json:"error_details,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed || j.Status == StatusCancelled
}

// Worker is the unit of work executed by StartJob. It receives the job id and
// the queue; all progress reporting goes through queue.Update and the worker
// is expected to check queue.IsCancelled between batches.
type Worker func(jobID string, q *Queue) error

// Queue is a mutex-guarded registry of jobs. All mutation goes through its
// methods; job snapshots returned by Get are copies.
type Queue struct {
	mu   sync.Mutex
	jobs map[string]*Job
	hub  *websocket.Hub
}

// New creates a queue. The hub may be nil (tests); progress broadcasts are
// then skipped.
func New(hub *websocket.Hub) *Queue {
	return &Queue{
		jobs: make(map[string]*Job),
		hub:  hub,
	}
}

// CreateJob registers a new pending job and returns its id so the caller can
// hand it to the HTTP client before any work starts.
func (q *Queue) CreateJob(jobType, description string, total int) string {
	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Description: description,
		Total:       total,
		Status:      StatusPending,
	}
	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()
	log.Printf("[JobQueue] Created job %s (%s): %s", job.ID, jobType, description)
	return job.ID
}

// Get returns a snapshot of the job, or nil if it does not exist (or was
// already swept).
func (q *Queue) Get(id string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil
	}
	snapshot := *job
	snapshot.ErrorDetails = append([]string(nil), job.ErrorDetails...)
	return &snapshot
}

// All returns snapshots of every tracked job.
func (q *Queue) All() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		snapshot := *job
		snapshot.ErrorDetails = append([]string(nil), job.ErrorDetails...)
		jobs = append(jobs, &snapshot)
	}
	return jobs
}

// Update applies fn to the job record under the queue lock and broadcasts the
// new progress. Workers use this to bump counters after each batch.
func (q *Queue) Update(id string, fn func(*Job)) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if ok {
		fn(job)
	}
	var snapshot Job
	if ok {
		snapshot = *job
	}
	q.mu.Unlock()
	if ok {
		q.broadcast(&snapshot)
	}
}

// StartJob transitions a pending job to running and executes the worker in a
// new goroutine. A worker that returns nil completes the job unless it was
// cancelled in the meantime; a worker that returns an error (or panics) fails
// it.
func (q *Queue) StartJob(id string, worker Worker) error {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return fmt.Errorf("job %s not found", id)
	}
	if job.Status != StatusPending {
		q.mu.Unlock()
		return fmt.Errorf("job %s is already %s", id, job.Status)
	}
	now := time.Now()
	job.Status = StatusRunning
	job.StartedAt = &now
	q.mu.Unlock()

	log.Printf("[JobQueue] Starting job %s", id)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[JobQueue] Job %s panicked: %v", id, r)
				q.finish(id, fmt.Errorf("job panicked: %v", r))
			}
		}()
		err := worker(id, q)
		q.finish(id, err)
	}()
	return nil
}

// finish records the worker outcome. A cancelled job keeps its cancelled
// status even when the worker later returns normally.
func (q *Queue) finish(id string, err error) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	if job.Status == StatusRunning {
		now := time.Now()
		job.CompletedAt = &now
		if err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
		} else {
			job.Status = StatusCompleted
		}
	}
	snapshot := *job
	q.mu.Unlock()

	if snapshot.Status == StatusFailed {
		log.Printf("[JobQueue] Job %s failed: %s", id, snapshot.Error)
	} else {
		log.Printf("[JobQueue] Job %s finished: %d created, %d updated, %d deleted, %d errors",
			id, snapshot.Created, snapshot.Updated, snapshot.Deleted, snapshot.Errors)
	}
	q.broadcast(&snapshot)
}

// Cancel requests cooperative cancellation of a running job. Pending and
// terminal jobs are left untouched. The worker notices at its next
// IsCancelled checkpoint; work committed in earlier batches is not rolled
// back.
func (q *Queue) Cancel(id string) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	var snapshot Job
	cancelled := false
	if ok && job.Status == StatusRunning {
		now := time.Now()
		job.Status = StatusCancelled
		job.CompletedAt = &now
		snapshot = *job
		cancelled = true
	}
	q.mu.Unlock()
	if cancelled {
		log.Printf("[JobQueue] Job %s cancelled", id)
		q.broadcast(&snapshot)
	}
}

// IsCancelled is the checkpoint workers call between batches.
func (q *Queue) IsCancelled(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	return ok && job.Status == StatusCancelled
}

// Cleanup removes terminal jobs older than maxAge and returns how many were
// purged. Clients are expected to poll promptly; this only bounds memory.
func (q *Queue) Cleanup(maxAge time.Duration) int {
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()
	cleaned := 0
	for id, job := range q.jobs {
		if job.Terminal() && job.CompletedAt != nil && now.Sub(*job.CompletedAt) > maxAge {
			delete(q.jobs, id)
			cleaned++
		}
	}
	if cleaned > 0 {
		log.Printf("[JobQueue] Cleaned up %d old jobs", cleaned)
	}
	return cleaned
}

// StartSweeper runs Cleanup on a fixed interval until stop is closed.
func (q *Queue) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				q.Cleanup(retentionAge)
			case <-stop:
				return
			}
		}
	}()
}

func (q *Queue) broadcast(job *Job) {
	if q.hub == nil {
		return
	}
	progress := 0.0
	if job.Total > 0 {
		progress = float64(job.Processed) / float64(job.Total) * 100
	}
	q.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    job.ID,
		Message:  job.Description,
		Progress: progress,
		Status:   job.Status,
		Done:     job.Terminal(),
	})
}
