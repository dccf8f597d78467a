package enumerate

import (
	"context"
	"fmt"

	"github.com/peekbilling/importer/internal/provider"
	"github.com/peekbilling/importer/internal/record"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"go.uber.org/zap"
)

// PartnerCenterEnumerator lists all Partner Center customers and their
// subscriptions. Enumeration of one customer failing does not discard
// subscriptions already gathered for others.
type PartnerCenterEnumerator struct {
	source    provider.CustomerSource
	tables    storage.Tables
	telemetry telemetry.Sink
	log       *zap.Logger
}

// NewPartnerCenterEnumerator wires the Partner Center enumeration unit.
func NewPartnerCenterEnumerator(source provider.CustomerSource, tables storage.Tables, sink telemetry.Sink, log *zap.Logger) *PartnerCenterEnumerator {
	return &PartnerCenterEnumerator{
		source:    source,
		tables:    tables,
		telemetry: sink,
		log:       log.Named("enumerate.partnercenter"),
	}
}

func (e *PartnerCenterEnumerator) Provider() record.Provider {
	return record.ProviderPartnerCenter
}

// Enumerate lists every customer's subscriptions and upserts a customer
// record per customer. Per-customer failures are reported and skipped;
// partial results are expected.
func (e *PartnerCenterEnumerator) Enumerate(ctx context.Context) ([]record.Subscription, error) {
	customers, err := e.source.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("partner center enumeration: %w", err)
	}

	var subscriptions []record.Subscription
	for _, customer := range customers {
		upstream, err := e.source.ListSubscriptions(ctx, customer.ID)
		if err != nil {
			e.report(ctx, err, customer.ID)
			continue
		}

		for _, s := range upstream {
			subscriptions = append(subscriptions, record.NewSubscription(
				customer.ID,
				s.ID,
				s.FriendlyName,
				normalizeBillingType(s.BillingType),
				record.ProviderPartnerCenter,
				normalizeStatus(s.Status),
			))
		}

		// The customer detail fetch carries the billing profile used for
		// the denormalized customer row. Its failure must not discard the
		// subscriptions gathered above.
		detail, err := e.source.GetCustomer(ctx, customer.ID)
		if err != nil {
			e.report(ctx, err, customer.ID)
			continue
		}

		row := record.NewCustomer(detail.ID)
		row.Name = detail.CompanyName
		row.Domain = detail.Domain
		row.City = detail.Billing.City
		row.State = detail.Billing.State
		row.PostalCode = detail.Billing.PostalCode

		if err := e.tables.Upsert(ctx, &row); err != nil {
			e.report(ctx, err, customer.ID)
		}
	}

	e.log.Info("enumeration pass complete",
		zap.Int("customers", len(customers)),
		zap.Int("subscriptions", len(subscriptions)),
	)
	return subscriptions, nil
}

func (e *PartnerCenterEnumerator) report(ctx context.Context, err error, customerID string) {
	e.telemetry.ReportException(ctx, err, map[string]string{
		"component":  "enumerate.partnercenter",
		"CustomerId": customerID,
	})
}
