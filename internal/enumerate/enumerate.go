// Package enumerate lists customers and subscriptions per provider,
// normalizes them into subscription records, and dispatches each record
// onto the processing queue.
package enumerate

import (
	"context"
	"errors"
	"strings"

	"github.com/peekbilling/importer/internal/record"
)

// ErrNotSupported signals a provider that has no customer enumeration
// path. It must surface explicitly so callers can detect the gap rather
// than observe silently empty results.
var ErrNotSupported = errors.New("customer_enumeration_not_supported")

// Enumerator lists the billing-relevant subscriptions for one provider.
// A customer record write per customer is a side effect of enumeration.
type Enumerator interface {
	Provider() record.Provider
	Enumerate(ctx context.Context) ([]record.Subscription, error)
}

func normalizeBillingType(raw string) record.BillingType {
	switch strings.ToLower(raw) {
	case "usage":
		return record.BillingTypeUsage
	case "license":
		return record.BillingTypeLicense
	default:
		return record.BillingTypeNone
	}
}

func normalizeStatus(raw string) record.Status {
	switch strings.ToLower(raw) {
	case "active":
		return record.StatusActive
	case "suspended":
		return record.StatusSuspended
	case "deleted":
		return record.StatusDeleted
	default:
		return record.StatusNone
	}
}
