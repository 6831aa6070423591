package jobs

import (
	"context"
	"time"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/resolver"
)

// Store owns every job and hands out copies only.
type Store interface {
	Create(ctx context.Context, urls []string) (Job, error)
	Get(ctx context.Context, jobID string) (Job, bool)
	List(ctx context.Context) []Job
	ListItems(ctx context.Context, jobID string) []Item
	SetState(ctx context.Context, jobID string, state State)
	UpdateItem(ctx context.Context, jobID, url string, status ItemStatus, pdfURL, reason string)
}

// Resolver turns one article URL into an outcome.
type Resolver interface {
	Resolve(ctx context.Context, url string) resolver.Outcome
}

// Queue provides enqueue/dequeue semantics for submitted jobs. TryEnqueue
// never blocks and reports ErrQueueFull when no slot is free.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	TryEnqueue(item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Publisher pushes job completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Submitted int64
}
