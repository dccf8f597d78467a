// Package scheduler runs the time-triggered enumeration unit: every
// configured provider is enumerated in parallel and the results are
// dispatched onto the subscription queue.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/enumerate"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"go.uber.org/zap"
)

// runTimeout bounds one full enumeration pass so a slow upstream cannot
// stall the schedule indefinitely.
const runTimeout = 30 * time.Minute

// Worker drives the periodic enumeration runs.
type Worker struct {
	enumerators []enumerate.Enumerator
	dispatcher  *enumerate.Dispatcher
	cleaner     *storage.Cleaner
	telemetry   telemetry.Sink
	metrics     *telemetry.Metrics
	log         *zap.Logger
	interval    time.Duration
	development bool
}

// NewWorker wires the enumeration schedule.
func NewWorker(
	cfg config.Config,
	enumerators []enumerate.Enumerator,
	dispatcher *enumerate.Dispatcher,
	cleaner *storage.Cleaner,
	sink telemetry.Sink,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *Worker {
	return &Worker{
		enumerators: enumerators,
		dispatcher:  dispatcher,
		cleaner:     cleaner,
		telemetry:   sink,
		metrics:     metrics,
		log:         log.Named("scheduler"),
		interval:    cfg.EnumerationInterval,
		development: cfg.IsDevelopment(),
	}
}

// RunForever runs an enumeration pass immediately and then on every
// interval tick until the context is canceled.
func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes one enumeration pass: every enumerator runs as an
// independent parallel task and a failure in one never cancels its
// siblings.
func (w *Worker) RunOnce(parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, runTimeout)
	defer cancel()

	if w.development {
		if err := w.cleaner.Reset(ctx); err != nil {
			w.telemetry.ReportException(ctx, err, map[string]string{"component": "scheduler"})
		}
	}

	var wg sync.WaitGroup
	for _, enumerator := range w.enumerators {
		wg.Add(1)
		go func(e enumerate.Enumerator) {
			defer wg.Done()
			w.runEnumerator(ctx, e)
		}(enumerator)
	}
	wg.Wait()
}

func (w *Worker) runEnumerator(ctx context.Context, e enumerate.Enumerator) {
	providerName := string(e.Provider())

	subscriptions, err := e.Enumerate(ctx)
	if err != nil {
		status := "failed"
		if errors.Is(err, enumerate.ErrNotSupported) {
			status = "not_supported"
		}
		w.metrics.EnumerationRun(providerName, status)
		w.telemetry.ReportException(ctx, err, map[string]string{
			"component": "scheduler",
			"Provider":  providerName,
		})
		return
	}

	failed := w.dispatcher.Dispatch(ctx, subscriptions)
	status := "ok"
	if failed > 0 {
		status = "partial"
	}
	w.metrics.EnumerationRun(providerName, status)
	w.log.Info("enumeration run complete",
		zap.String("provider", providerName),
		zap.Int("subscriptions", len(subscriptions)),
		zap.Int("dispatch_failures", failed),
	)
}
