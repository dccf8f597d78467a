package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/peekbilling/importer/internal/record"
	"github.com/peekbilling/importer/internal/telemetry"
)

// ErrMalformed marks a queue payload that cannot be deserialized or lacks
// routing identity. Malformed payloads are not self-correcting, so the
// consumer drops them without retry.
var ErrMalformed = errors.New("malformed_subscription_message")

// Router deserializes dispatched subscription messages and hands each to
// the matching ingestor: license billing to the license ingestor,
// everything else to the usage ingestor for the record's provider.
type Router struct {
	license Ingestor
	usage   map[record.Provider]Ingestor
	metrics *telemetry.Metrics
}

// NewRouter builds the routing table. The usage map must cover every
// configured provider; a missing entry is a configuration error surfaced
// here at startup, not at message time.
func NewRouter(license Ingestor, usage map[record.Provider]Ingestor, configured []record.Provider, metrics *telemetry.Metrics) (*Router, error) {
	for _, p := range configured {
		if _, ok := usage[p]; !ok {
			return nil, fmt.Errorf("no usage ingestor registered for provider %s", p)
		}
	}
	return &Router{license: license, usage: usage, metrics: metrics}, nil
}

// Route processes one raw queue payload. The returned outcome classifies
// the result for the consumer's retry/drop decision.
func (r *Router) Route(ctx context.Context, payload []byte) (Outcome, error) {
	var sub record.Subscription
	if err := json.Unmarshal(payload, &sub); err != nil {
		return OutcomeFatal, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !sub.Valid() {
		return OutcomeFatal, fmt.Errorf("%w: missing subscription or customer id", ErrMalformed)
	}

	target := r.license
	if sub.BillingType != record.BillingTypeLicense {
		ingestor, ok := r.usage[sub.Provider]
		if !ok {
			return OutcomeFatal, fmt.Errorf("no usage ingestor for provider %q", sub.Provider)
		}
		target = ingestor
	}

	started := time.Now()
	outcome, err := target.Process(ctx, sub)
	r.metrics.ObserveProcessDuration(string(sub.BillingType), time.Since(started).Seconds())
	return outcome, err
}
