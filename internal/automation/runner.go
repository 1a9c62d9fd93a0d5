package automation

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lookout/internal/constants"
	"lookout/internal/logger"
	apperrors "lookout/pkg/errors"
	"lookout/pkg/logging"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
)

var (
	ErrQueueFull     = errors.New("automation queue is full")
	ErrRunnerStopped = errors.New("automation runner is stopped")
)

type EventProcessor interface {
	Process(ctx context.Context, event models.EventMessage) (Summary, error)
}

type queuedEvent struct {
	event      models.EventMessage
	traceID    string
	enqueuedAt time.Time
}

// Runner drains persisted events through the pipeline on a fixed set of workers.
// Handoff never blocks: a full queue drops the event from automation.
type Runner struct {
	processor EventProcessor
	queue     chan queuedEvent
	workers   int
	logger    logger.Logger

	// mu orders Handoff sends before the stop that starts the drain.
	mu      sync.RWMutex
	stopped bool
}

func NewRunner(processor EventProcessor, workers, queueSize int, log logger.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Runner{
		processor: processor,
		queue:     make(chan queuedEvent, queueSize),
		workers:   workers,
		logger:    log,
	}
}

func (r *Runner) Handoff(ctx context.Context, event models.EventMessage) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrRunnerStopped
	}

	select {
	case r.queue <- queuedEvent{event: event, traceID: logging.GetTraceID(ctx), enqueuedAt: time.Now()}:
		metrics.SetAutomationQueueSize(len(r.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

// Run blocks until ctx is cancelled, then drains the queue for at most
// constants.ShutdownTimeout before returning. Every event accepted by Handoff
// before Run returns is drained.
func (r *Runner) Run(ctx context.Context) error {
	stop := make(chan struct{})
	processCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i := 0; i < r.workers; i++ {
		worker := i
		g.Go(func() error {
			r.work(processCtx, stop, worker)
			return nil
		})
	}

	<-ctx.Done()
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	close(stop)

	return g.Wait()
}

func (r *Runner) work(ctx context.Context, stop <-chan struct{}, worker int) {
	for {
		select {
		case item := <-r.queue:
			r.process(ctx, item)
		case <-stop:
			r.drain(worker)
			return
		}
	}
}

func (r *Runner) drain(worker int) {
	drainCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	for {
		select {
		case item := <-r.queue:
			r.process(drainCtx, item)
		case <-drainCtx.Done():
			r.logger.Warnw("Automation queue drain timed out",
				"worker", worker,
				"remaining", len(r.queue),
			)
			return
		default:
			return
		}
	}
}

func (r *Runner) process(ctx context.Context, item queuedEvent) {
	metrics.SetAutomationQueueSize(len(r.queue))
	metrics.ObserveAutomationQueueWait(time.Since(item.enqueuedAt))

	if item.traceID != "" {
		ctx = logging.WithTraceID(ctx, item.traceID)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err := apperrors.RecoverPanic(rec)
			r.logger.ErrorwCtx(ctx, "Automation pipeline panicked",
				"event_id", item.event.ID,
				"error", err,
			)
		}
	}()

	if _, err := r.processor.Process(ctx, item.event); err != nil {
		r.logger.ErrorwCtx(ctx, "Automation pipeline failed",
			"event_id", item.event.ID,
			"error", err,
		)
	}
}
