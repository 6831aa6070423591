// Package worker runs resolution jobs pulled from the job queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/jobs"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/metrics"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/resolver"
)

const tracerName = "github.com/JakeFAU/pubmed-pdf-resolver/internal/worker"

// Config controls Worker behavior.
type Config struct {
	// ItemConcurrency bounds how many items of one job resolve at once.
	// Values below 2 resolve items sequentially.
	ItemConcurrency int
	// Topic receives a completion summary per job. Empty disables publishing.
	Topic string
}

// Worker consumes queued jobs and resolves their items.
type Worker struct {
	queue     jobs.Queue
	store     jobs.Store
	resolver  jobs.Resolver
	publisher jobs.Publisher
	clock     jobs.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue jobs.Queue,
	store jobs.Store,
	res jobs.Resolver,
	publisher jobs.Publisher,
	clock jobs.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		store:     store,
		resolver:  res,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.Named("worker"),
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, jobs.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		if err := w.RunJob(ctx, item.JobID); err != nil {
			w.logger.Error("run job failed", zap.String("job_id", item.JobID), zap.Error(err))
		}
	}
}

// RunJob resolves every item of the job and records the final state. Item
// failures never abort the job; only an unknown job ID is an error.
func (w *Worker) RunJob(ctx context.Context, jobID string) error {
	if _, ok := w.store.Get(ctx, jobID); !ok {
		return fmt.Errorf("run job %s: %w", jobID, jobs.ErrJobNotFound)
	}
	metrics.IncActiveJobs()
	defer metrics.DecActiveJobs()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "run_job")
	defer span.End()

	w.store.SetState(ctx, jobID, jobs.StateRunning)
	items := w.store.ListItems(ctx, jobID)
	span.SetAttributes(attribute.String("job_id", jobID), attribute.Int("items", len(items)))
	w.logger.Info("job started", zap.String("job_id", jobID), zap.Int("items", len(items)))

	if w.cfg.ItemConcurrency > 1 {
		w.resolveConcurrently(ctx, jobID, items)
	} else {
		for _, item := range items {
			w.resolveItem(ctx, jobID, item.URL)
		}
	}

	job, ok := w.store.Get(ctx, jobID)
	if !ok {
		return fmt.Errorf("finalize job %s: %w", jobID, jobs.ErrJobNotFound)
	}
	state := job.FinalState()
	w.store.SetState(ctx, jobID, state)
	metrics.ObserveJob(string(state))
	span.SetAttributes(attribute.String("state", string(state)))

	summary := job.Summary()
	w.logger.Info("job finished",
		zap.String("job_id", jobID),
		zap.String("state", string(state)),
		zap.Int("resolved", summary.Resolved),
		zap.Int("failed", summary.Failed),
	)
	w.publishCompletion(ctx, jobID, state, summary)
	return nil
}

func (w *Worker) resolveConcurrently(ctx context.Context, jobID string, items []jobs.Item) {
	var g errgroup.Group
	g.SetLimit(w.cfg.ItemConcurrency)
	for _, item := range items {
		g.Go(func() error {
			w.resolveItem(ctx, jobID, item.URL)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) resolveItem(ctx context.Context, jobID, url string) {
	outcome := w.safeResolve(ctx, url)
	if outcome.OK() {
		w.store.UpdateItem(ctx, jobID, url, jobs.ItemResolved, outcome.PDFURL, "")
		w.logger.Debug("item resolved",
			zap.String("job_id", jobID),
			zap.String("url", url),
			zap.String("source", string(outcome.Source)),
		)
		return
	}
	w.store.UpdateItem(ctx, jobID, url, jobs.ItemFailed, "", outcome.Reason)
	w.logger.Debug("item failed",
		zap.String("job_id", jobID),
		zap.String("url", url),
		zap.String("reason", outcome.Reason),
	)
}

func (w *Worker) safeResolve(ctx context.Context, url string) (outcome resolver.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("resolver panicked", zap.String("url", url), zap.Any("panic", rec))
			outcome = resolver.Failure(fmt.Sprint(rec))
		}
	}()
	return w.resolver.Resolve(ctx, url)
}

func (w *Worker) publishCompletion(ctx context.Context, jobID string, state jobs.State, summary jobs.Summary) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}
	finished := time.Now()
	if w.clock != nil {
		finished = w.clock.Now()
	}
	payload := map[string]any{
		"job_id":    jobID,
		"state":     string(state),
		"total":     summary.Total,
		"resolved":  summary.Resolved,
		"failed":    summary.Failed,
		"timestamp": finished.UTC().Format(time.RFC3339),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, payload); err != nil {
		w.logger.Warn("publish completion failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	w.logger.Debug("completion published", zap.String("job_id", jobID), zap.String("topic", w.cfg.Topic))
}
