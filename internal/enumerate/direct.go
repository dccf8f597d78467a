package enumerate

import (
	"context"
	"fmt"

	"github.com/peekbilling/importer/internal/record"
)

// DirectEnumerator is the customer enumeration unit for directly billed
// subscriptions. There is no enumeration channel for this provider yet;
// the gap is surfaced as an explicit error instead of an empty result.
type DirectEnumerator struct{}

// NewDirectEnumerator wires the direct enumeration unit.
func NewDirectEnumerator() *DirectEnumerator {
	return &DirectEnumerator{}
}

func (e *DirectEnumerator) Provider() record.Provider {
	return record.ProviderDirect
}

func (e *DirectEnumerator) Enumerate(context.Context) ([]record.Subscription, error) {
	return nil, fmt.Errorf("provider %s: %w", record.ProviderDirect, ErrNotSupported)
}
