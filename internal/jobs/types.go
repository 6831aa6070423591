// Package jobs defines the job and item model shared by the store, the
// runner, and the HTTP API.
package jobs

import (
	"errors"
	"time"
)

// State represents the lifecycle state of a resolution job.
type State string

// Job state values.
const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s State) IsTerminal() bool {
	switch s {
	case StateDone, StateFailed:
		return true
	default:
		return false
	}
}

// ItemStatus tracks one URL inside a job.
type ItemStatus string

// Item status values.
const (
	ItemPending  ItemStatus = "pending"
	ItemResolved ItemStatus = "resolved"
	ItemFailed   ItemStatus = "failed"
)

// Sentinel errors shared by job producers and consumers.
var (
	ErrNoURLs      = errors.New("at least one URL required")
	ErrJobNotFound = errors.New("job not found")
	ErrQueueClosed = errors.New("queue closed")
	ErrQueueFull   = errors.New("queue full")
)

// Item is one article URL and its resolution result.
type Item struct {
	URL    string     `json:"url"`
	Status ItemStatus `json:"status"`
	PDFURL string     `json:"pdf_url,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// Job is a batch of article URLs resolved together.
type Job struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     State     `json:"state"`
	Items     []Item    `json:"items"`
}

// Summary counts items per status.
type Summary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

// Clone returns a deep copy of the job.
func (j Job) Clone() Job {
	cp := j
	if j.Items != nil {
		cp.Items = make([]Item, len(j.Items))
		copy(cp.Items, j.Items)
	}
	return cp
}

// FinalState derives the terminal state from item statuses: any failed item
// fails the job.
func (j Job) FinalState() State {
	for _, item := range j.Items {
		if item.Status == ItemFailed {
			return StateFailed
		}
	}
	return StateDone
}

// Summary tallies the job's items.
func (j Job) Summary() Summary {
	s := Summary{Total: len(j.Items)}
	for _, item := range j.Items {
		switch item.Status {
		case ItemResolved:
			s.Resolved++
		case ItemFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	return s
}
