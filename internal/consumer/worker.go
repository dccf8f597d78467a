// Package consumer is the message-triggered processing unit: it pops
// dispatched subscription messages and routes each one to an ingestor,
// with bounded concurrency and per-message failure isolation.
package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/ingest"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"go.uber.org/zap"
)

// Worker consumes the subscription queue.
type Worker struct {
	queue          storage.Queue
	router         *ingest.Router
	telemetry      telemetry.Sink
	metrics        *telemetry.Metrics
	log            *zap.Logger
	queueName      string
	batchSize      int
	processTimeout time.Duration
}

// NewWorker wires the queue consumption unit.
func NewWorker(cfg config.Config, queue storage.Queue, router *ingest.Router, sink telemetry.Sink, metrics *telemetry.Metrics, log *zap.Logger) *Worker {
	return &Worker{
		queue:          queue,
		router:         router,
		telemetry:      sink,
		metrics:        metrics,
		log:            log.Named("consumer"),
		queueName:      cfg.SubscriptionsQueueName,
		batchSize:      cfg.QueueBatchSize,
		processTimeout: cfg.ProcessTimeout,
	}
}

// RunForever consumes messages until the context is canceled. Up to the
// configured batch size of messages are processed concurrently; a failing
// message never halts the loop.
func (w *Worker) RunForever(ctx context.Context) {
	sem := make(chan struct{}, w.batchSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, ok, err := w.queue.Dequeue(ctx, w.queueName)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.telemetry.ReportException(ctx, err, map[string]string{"component": "consumer"})
			continue
		}
		if !ok {
			continue
		}

		sem <- struct{}{}
		go func(payload []byte) {
			defer func() { <-sem }()
			w.handle(ctx, payload)
		}(payload)
	}
}

// handle routes one message with a bounded processing timeout. Malformed
// payloads go to the poison queue and are dropped without retry; other
// failures are reported and retry is left to redelivery.
func (w *Worker) handle(parentCtx context.Context, payload []byte) {
	ctx, cancel := context.WithTimeout(parentCtx, w.processTimeout)
	defer cancel()

	outcome, err := w.router.Route(ctx, payload)
	w.metrics.QueueMessage(outcome.String())

	if err == nil {
		return
	}

	if errors.Is(err, ingest.ErrMalformed) {
		if poisonErr := w.queue.Enqueue(ctx, w.queueName+storage.PoisonQueueSuffix, string(payload)); poisonErr != nil {
			w.log.Warn("failed to park poison message", zap.Error(poisonErr))
		}
	}

	w.telemetry.ReportException(ctx, err, map[string]string{
		"component": "consumer",
		"Outcome":   outcome.String(),
	})
}
