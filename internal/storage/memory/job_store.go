// Package memory provides the in-process job store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/clock/system"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/id/uuid"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/jobs"
)

// JobStore keeps jobs in memory. A single mutex guards every operation and is
// never held across anything slower than a map lookup; callers only ever see
// copies.
type JobStore struct {
	mu    sync.Mutex
	jobs  map[string]*jobs.Job
	order []string
	idGen jobs.IDGenerator
	clock jobs.Clock
}

// NewJobStore constructs a JobStore. Nil dependencies fall back to UUIDv7
// IDs and the system clock.
func NewJobStore(idGen jobs.IDGenerator, clock jobs.Clock) *JobStore {
	if idGen == nil {
		idGen = uuid.New()
	}
	if clock == nil {
		clock = system.New()
	}
	return &JobStore{
		jobs:  make(map[string]*jobs.Job),
		idGen: idGen,
		clock: clock,
	}
}

// Create stores a queued job with one pending item per URL, in input order.
func (s *JobStore) Create(_ context.Context, urls []string) (jobs.Job, error) {
	if len(urls) == 0 {
		return jobs.Job{}, jobs.ErrNoURLs
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	jobID, err := s.idGen.NewID()
	if err != nil {
		return jobs.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	if _, exists := s.jobs[jobID]; exists {
		return jobs.Job{}, fmt.Errorf("job %s already exists", jobID)
	}
	items := make([]jobs.Item, len(urls))
	for i, url := range urls {
		items[i] = jobs.Item{URL: url, Status: jobs.ItemPending}
	}
	job := &jobs.Job{
		ID:        jobID,
		CreatedAt: s.clock.Now(),
		State:     jobs.StateQueued,
		Items:     items,
	}
	s.jobs[jobID] = job
	s.order = append(s.order, jobID)
	return job.Clone(), nil
}

// Get returns a copy of the job.
func (s *JobStore) Get(_ context.Context, jobID string) (jobs.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return jobs.Job{}, false
	}
	return job.Clone(), true
}

// List returns copies of all jobs, newest first.
func (s *JobStore) List(_ context.Context) []jobs.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]jobs.Job, 0, len(s.order))
	for _, jobID := range slices.Backward(s.order) {
		out = append(out, s.jobs[jobID].Clone())
	}
	return out
}

// ListItems returns a copy of the job's items, or nil for unknown jobs.
func (s *JobStore) ListItems(_ context.Context, jobID string) []jobs.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	return job.Clone().Items
}

// SetState overwrites the job state. Unknown jobs and jobs that already
// reached done or failed are left untouched.
func (s *JobStore) SetState(_ context.Context, jobID string, state jobs.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.State.IsTerminal() {
		return
	}
	job.State = state
}

// UpdateItem records the result for the first still-pending item with url.
// Items are written once; repeated or unknown updates are no-ops.
func (s *JobStore) UpdateItem(
	_ context.Context,
	jobID string,
	url string,
	status jobs.ItemStatus,
	pdfURL string,
	reason string,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	for i := range job.Items {
		item := &job.Items[i]
		if item.URL != url || item.Status != jobs.ItemPending {
			continue
		}
		item.Status = status
		item.PDFURL = pdfURL
		item.Reason = reason
		return
	}
}
