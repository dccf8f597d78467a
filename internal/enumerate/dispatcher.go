package enumerate

import (
	"context"
	"sync"

	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/record"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"go.uber.org/zap"
)

// dispatchWorkers bounds concurrent queue/table writes during dispatch.
const dispatchWorkers = 8

// Dispatcher persists each enumerated subscription as a queue message and
// a table row. The two writes are independent: a crash between them can
// leave a subscription queued but not stored or vice versa, which is
// accepted as idempotent-at-worst-duplicate.
type Dispatcher struct {
	queue     storage.Queue
	tables    storage.Tables
	queueName string
	telemetry telemetry.Sink
	log       *zap.Logger
}

// NewDispatcher wires the subscription dispatch step.
func NewDispatcher(queue storage.Queue, tables storage.Tables, cfg config.Config, sink telemetry.Sink, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:     queue,
		tables:    tables,
		queueName: cfg.SubscriptionsQueueName,
		telemetry: sink,
		log:       log.Named("enumerate.dispatch"),
	}
}

// Dispatch writes every subscription with bounded concurrency, collecting
// each outcome. A failed subscription is reported and does not stop the
// others; the failure count is returned for the caller's run summary.
func (d *Dispatcher) Dispatch(ctx context.Context, subscriptions []record.Subscription) int {
	sem := make(chan struct{}, dispatchWorkers)
	failures := make(chan error, len(subscriptions))

	var wg sync.WaitGroup
	for _, sub := range subscriptions {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub record.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := d.dispatchOne(ctx, sub); err != nil {
				failures <- err
			}
		}(sub)
	}
	wg.Wait()
	close(failures)

	failed := 0
	for err := range failures {
		failed++
		d.telemetry.ReportException(ctx, err, map[string]string{
			"component": "enumerate.dispatch",
		})
	}

	d.log.Info("dispatched subscriptions",
		zap.Int("total", len(subscriptions)),
		zap.Int("failed", failed),
	)
	return failed
}

func (d *Dispatcher) dispatchOne(ctx context.Context, sub record.Subscription) error {
	if err := d.queue.Enqueue(ctx, d.queueName, sub); err != nil {
		return err
	}
	return d.tables.Upsert(ctx, &sub)
}
