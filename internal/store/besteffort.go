package store

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/echomentor/backend/internal/model/session"
)

// BestEffortUpdater applies session writes that conversational flow must
// never wait on. Each call returns immediately; the write is attempted in
// the background with bounded retries and exponential backoff, and failures
// are logged rather than surfaced. Writes for the same session run one at a
// time in the order they were issued, so a slow earlier patch can never
// overwrite a later one. Callers that need the result must use the
// SessionStore directly instead.
type BestEffortUpdater struct {
	store    SessionStore
	attempts int
	backoff  time.Duration

	mu     sync.Mutex
	queues map[string]*writeQueue
	wg     sync.WaitGroup
}

type writeJob struct {
	op string
	fn func(ctx context.Context) error
}

type writeQueue struct {
	jobs    []writeJob
	running bool
}

// NewBestEffortUpdater wraps the store with the default policy: 3 attempts,
// 250ms base backoff doubling per attempt.
func NewBestEffortUpdater(s SessionStore) *BestEffortUpdater {
	return &BestEffortUpdater{
		store:    s,
		attempts: 3,
		backoff:  250 * time.Millisecond,
		queues:   make(map[string]*writeQueue),
	}
}

// Create inserts the session in the background.
func (u *BestEffortUpdater) Create(rec session.Session) {
	u.enqueue(rec.ID, writeJob{op: "create", fn: func(ctx context.Context) error {
		_, err := u.store.Create(ctx, rec)
		return err
	}})
}

// Update applies the patch in the background.
func (u *BestEffortUpdater) Update(id string, patch session.Patch) {
	u.enqueue(id, writeJob{op: "update", fn: func(ctx context.Context) error {
		_, err := u.store.Update(ctx, id, patch)
		return err
	}})
}

// Wait blocks until all in-flight writes have settled. Used by shutdown and
// tests; the conversational path never calls it.
func (u *BestEffortUpdater) Wait() {
	u.wg.Wait()
}

// enqueue appends the job to the session's queue, starting a drain
// goroutine if one is not already running for that id.
func (u *BestEffortUpdater) enqueue(id string, j writeJob) {
	u.wg.Add(1)

	u.mu.Lock()
	q := u.queues[id]
	if q == nil {
		q = &writeQueue{}
		u.queues[id] = q
	}
	q.jobs = append(q.jobs, j)
	if !q.running {
		q.running = true
		go u.drain(id, q)
	}
	u.mu.Unlock()
}

// drain executes the session's queued jobs in order until the queue empties.
func (u *BestEffortUpdater) drain(id string, q *writeQueue) {
	for {
		u.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			delete(u.queues, id)
			u.mu.Unlock()
			return
		}
		j := q.jobs[0]
		q.jobs = q.jobs[1:]
		u.mu.Unlock()

		u.run(j.op, id, j.fn)
		u.wg.Done()
	}
}

func (u *BestEffortUpdater) run(op, id string, fn func(ctx context.Context) error) {
	delay := u.backoff
	var lastErr error
	for attempt := 1; attempt <= u.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := fn(ctx)
		cancel()

		if err == nil {
			return
		}
		lastErr = err

		// Regressions and duplicates are logic outcomes, not transient
		// faults; retrying cannot help. A missing row can be timing (a
		// create for the same id still settling elsewhere), so it keeps
		// the backoff.
		if errors.Is(err, ErrStatusRegression) || errors.Is(err, ErrAlreadyExists) {
			break
		}

		if attempt < u.attempts {
			time.Sleep(delay)
			delay *= 2
		}
	}

	log.Printf("[store] best-effort %s failed for session=%s: %v", op, id, lastErr)
}
