// Package provider defines the consumed interfaces and transfer types for
// the upstream billing providers.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Address is the fragment of a billing address carried into customer
// records.
type Address struct {
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// Customer is upstream customer metadata. The company and billing profile
// fields are populated only by the per-customer detail fetch.
type Customer struct {
	ID          string  `json:"id"`
	CompanyName string  `json:"companyName"`
	Domain      string  `json:"domain"`
	Billing     Address `json:"billingAddress"`
}

// Subscription is one upstream subscription, with provider-native billing
// type and status strings.
type Subscription struct {
	ID           string `json:"id"`
	FriendlyName string `json:"friendlyName"`
	BillingType  string `json:"billingType"`
	Status       string `json:"status"`
}

// UtilizationRecord is one raw metered consumption event as delivered by a
// provider.
type UtilizationRecord struct {
	ResourceID       string            `json:"resourceId"`
	ResourceName     string            `json:"resourceName"`
	Category         string            `json:"category"`
	Subcategory      string            `json:"subcategory"`
	Quantity         decimal.Decimal   `json:"quantity"`
	Unit             string            `json:"unit"`
	UsageStartTime   time.Time         `json:"usageStartTime"`
	UsageEndTime     time.Time         `json:"usageEndTime"`
	InstanceLocation string            `json:"instanceLocation"`
	ResourceURI      string            `json:"resourceUri"`
	Tags             map[string]string `json:"tags"`
}

// UtilizationPage is one bounded page of utilization records. A non-empty
// Continuation means more pages follow.
type UtilizationPage struct {
	Records      []UtilizationRecord `json:"records"`
	Continuation string              `json:"continuation"`
}

// SubscribedSku is one license SKU consumption snapshot with its raw
// sub-counts.
type SubscribedSku struct {
	SkuID            string `json:"skuId"`
	SkuPartNumber    string `json:"skuPartNumber"`
	CapabilityStatus string `json:"capabilityStatus"`
	AppliesTo        string `json:"appliesTo"`
	EnabledUnits     int64  `json:"enabledUnits"`
	WarningUnits     int64  `json:"warningUnits"`
	SuspendedUnits   int64  `json:"suspendedUnits"`
	ConsumedUnits    int64  `json:"consumedUnits"`
}

// CustomerSource lists customers and their subscriptions for enumeration.
type CustomerSource interface {
	ListCustomers(ctx context.Context) ([]Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error)
}

// UtilizationSource retrieves paginated usage records for one
// subscription.
type UtilizationSource interface {
	// Query requests the first page of the trailing window at daily
	// granularity.
	Query(ctx context.Context, customerID, subscriptionID string, start, end time.Time) (*UtilizationPage, error)

	// Next follows a continuation returned by a previous page.
	Next(ctx context.Context, continuation string) (*UtilizationPage, error)
}

// SkuSource fetches the full set of subscribed license SKUs for a
// customer.
type SkuSource interface {
	SubscribedSkus(ctx context.Context, customerID string) ([]SubscribedSku, error)
}
