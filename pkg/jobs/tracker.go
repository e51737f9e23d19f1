package jobs

import (
	"sync"
	"time"
)

// State is the lifecycle position of a job.
type State string

const (
	StateQueued    State = "QUEUED"
	StateRunning   State = "RUNNING"
	StateRetrying  State = "RETRYING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

// Record is the observable state of a job.
type Record struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	State      State       `json:"state"`
	Attempt    int         `json:"attempt"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Finished reports whether the job reached a final state.
func (r Record) Finished() bool {
	return r.State == StateSucceeded || r.State == StateFailed
}

// Tracker keeps job records, expiring finished ones after the retention window.
type Tracker struct {
	mu        sync.Mutex
	records   map[string]*Record
	retention time.Duration
	now       func() time.Time
}

// NewTracker creates a tracker retaining finished records for retention.
func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{records: make(map[string]*Record), retention: retention, now: time.Now}
}

// Get returns a copy of the record for id.
func (t *Tracker) Get(id string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictLocked()
	rec, ok := t.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (t *Tracker) queued(job Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictLocked()
	t.records[job.ID] = &Record{
		ID:         job.ID,
		Type:       job.Type,
		State:      StateQueued,
		EnqueuedAt: job.Enqueued,
		UpdatedAt:  t.now().UTC(),
	}
}

func (t *Tracker) forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, id)
}

func (t *Tracker) running(id string, attempt int) {
	t.update(id, func(r *Record) {
		r.State = StateRunning
		r.Attempt = attempt + 1
	})
}

func (t *Tracker) retrying(id string, attempt int, err error) {
	t.update(id, func(r *Record) {
		r.State = StateRetrying
		r.Attempt = attempt
		r.Error = err.Error()
	})
}

func (t *Tracker) succeeded(id string, result interface{}) {
	t.update(id, func(r *Record) {
		r.State = StateSucceeded
		r.Result = result
		r.Error = ""
	})
}

func (t *Tracker) failed(id string, err error) {
	t.update(id, func(r *Record) {
		r.State = StateFailed
		if err != nil {
			r.Error = err.Error()
		}
	})
}

func (t *Tracker) update(id string, fn func(*Record)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return
	}
	fn(rec)
	rec.UpdatedAt = t.now().UTC()
}

func (t *Tracker) evictLocked() {
	cutoff := t.now().Add(-t.retention)
	for id, rec := range t.records {
		if rec.Finished() && rec.UpdatedAt.Before(cutoff) {
			delete(t.records, id)
		}
	}
}
