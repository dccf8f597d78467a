// Package ingest processes dispatched subscription records: usage
// retrieval and billing for metered subscriptions, SKU snapshots for
// license subscriptions, and the routing between them.
package ingest

import (
	"context"

	"github.com/peekbilling/importer/internal/record"
)

// Outcome classifies the result of processing one subscription. Expected
// conditions (nothing to do, skipped record) are outcomes rather than
// errors; only genuine failures carry a non-nil error alongside.
type Outcome int

const (
	// OutcomeProcessed means records were retrieved and written.
	OutcomeProcessed Outcome = iota

	// OutcomeSkipped means the skip predicate matched; a deliberate no-op.
	OutcomeSkipped

	// OutcomeRecoverable means the unit failed in a way redelivery may
	// resolve (upstream or storage I/O).
	OutcomeRecoverable

	// OutcomeFatal means reprocessing the same message cannot succeed
	// (malformed input, structural storage violation).
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRecoverable:
		return "recoverable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Ingestor processes one subscription record end to end.
type Ingestor interface {
	Process(ctx context.Context, sub record.Subscription) (Outcome, error)
}

// blobTimestampFormat names snapshot blobs {subscriptionId}-{timestamp}.json.
const blobTimestampFormat = "2006-01-02-15-04-05"

// skip preserves the observed predicate from the source system: a
// subscription is skipped only when its billing type differs from the
// expected one AND its status is deleted. The intuitive reading would be
// OR (wrong billing type, or deleted); the AND is pinned by tests until
// the intent is confirmed with the data owners.
func skip(sub record.Subscription, expected record.BillingType) bool {
	return sub.BillingType != expected && sub.Status == record.StatusDeleted
}
