// Package record defines the normalized billing records shared by the
// enumeration, routing, and ingestion stages, together with their storage
// key derivation.
package record

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Fixed partition values for the flat reference tables.
const (
	CustomersPartitionKey     = "customers"
	SubscriptionsPartitionKey = "subscriptions"
)

// CaptureDateFormat is the partition key layout for license SKU snapshots.
const CaptureDateFormat = "2006-01-02"

// Subscription identifies one billing-relevant subscription. It is created
// by an enumerator, carried through the dispatch queue as JSON, and never
// mutated after creation.
type Subscription struct {
	PartitionKey   string      `gorm:"primaryKey;column:partition_key" json:"partitionKey"`
	RowKey         string      `gorm:"primaryKey;column:row_key" json:"rowKey"`
	SubscriptionID string      `gorm:"column:subscription_id" json:"subscriptionId"`
	CustomerID     string      `gorm:"column:customer_id" json:"customerId"`
	BillingType    BillingType `gorm:"column:billing_type" json:"billingType"`
	Provider       Provider    `gorm:"column:provider" json:"provider"`
	FriendlyName   string      `gorm:"column:friendly_name" json:"friendlyName"`
	Status         Status      `gorm:"column:status" json:"status"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s Subscription) Keys() (string, string) { return s.PartitionKey, s.RowKey }

// NewSubscription builds a subscription record keyed under the fixed
// subscriptions partition with the subscription id as row key.
func NewSubscription(customerID, subscriptionID, friendlyName string, billingType BillingType, provider Provider, status Status) Subscription {
	return Subscription{
		PartitionKey:   SubscriptionsPartitionKey,
		RowKey:         subscriptionID,
		SubscriptionID: subscriptionID,
		CustomerID:     customerID,
		BillingType:    billingType,
		Provider:       provider,
		FriendlyName:   friendlyName,
		Status:         status,
	}
}

// Valid reports whether the record carries enough identity to be routed.
func (s Subscription) Valid() bool {
	return s.SubscriptionID != "" && s.CustomerID != ""
}

// Customer is denormalized customer metadata, overwritten on every
// enumeration pass (last write wins by customer id).
type Customer struct {
	PartitionKey string `gorm:"primaryKey;column:partition_key" json:"partitionKey"`
	RowKey       string `gorm:"primaryKey;column:row_key" json:"rowKey"`
	CustomerID   string `gorm:"column:customer_id" json:"customerId"`
	Name         string `gorm:"column:name" json:"name"`
	Domain       string `gorm:"column:domain" json:"domain"`
	City         string `gorm:"column:city" json:"city"`
	State        string `gorm:"column:state" json:"state"`
	PostalCode   string `gorm:"column:postal_code" json:"postalCode"`
}

func (Customer) TableName() string { return "customers" }

func (c Customer) Keys() (string, string) { return c.PartitionKey, c.RowKey }

// NewCustomer keys the record under the fixed customers partition.
func NewCustomer(customerID string) Customer {
	return Customer{
		PartitionKey: CustomersPartitionKey,
		RowKey:       customerID,
		CustomerID:   customerID,
	}
}

// Usage is one metered consumption event. The partition key combines
// customer and subscription, the row key is a generated unique id, so
// reprocessing the same window produces additional rows rather than
// overwriting earlier ones.
type Usage struct {
	PartitionKey   string          `gorm:"primaryKey;column:partition_key" json:"partitionKey"`
	RowKey         string          `gorm:"primaryKey;column:row_key" json:"rowKey"`
	ResourceID     string          `gorm:"column:resource_id" json:"id"`
	Name           string          `gorm:"column:name" json:"name"`
	Category       string          `gorm:"column:category" json:"category"`
	Subcategory    string          `gorm:"column:subcategory" json:"subcategory"`
	CustomerID     string          `gorm:"column:customer_id" json:"customerId"`
	SubscriptionID string          `gorm:"column:subscription_id" json:"subscriptionId"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:numeric" json:"quantity"`
	Unit           string          `gorm:"column:unit" json:"unit"`
	UsageStartTime time.Time       `gorm:"column:usage_start_time" json:"usageStartTime"`
	UsageEndTime   time.Time       `gorm:"column:usage_end_time" json:"usageEndTime"`
	Location       string          `gorm:"column:location" json:"location"`
	ResourceURI    string          `gorm:"column:resource_uri" json:"resourceUri"`
	Tags           string          `gorm:"column:tags" json:"tags"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric" json:"total"`
	UniqueID       string          `gorm:"column:unique_id" json:"uniqueId"`
}

func (Usage) TableName() string { return "azureusage" }

func (u Usage) Keys() (string, string) { return u.PartitionKey, u.RowKey }

// SetKeys derives the storage keys from the record identity and its
// generated unique id.
func (u *Usage) SetKeys() {
	u.PartitionKey = fmt.Sprintf("%s_%s", u.CustomerID, u.SubscriptionID)
	u.RowKey = u.UniqueID
}

// LicenseSku is a snapshot of one subscribed product for a customer on a
// given capture date. Keyed by capture date and customer/sku, so same-day
// reprocessing overwrites instead of duplicating.
type LicenseSku struct {
	PartitionKey     string    `gorm:"primaryKey;column:partition_key" json:"partitionKey"`
	RowKey           string    `gorm:"primaryKey;column:row_key" json:"rowKey"`
	CustomerID       string    `gorm:"column:customer_id" json:"customerId"`
	SkuID            string    `gorm:"column:sku_id" json:"skuId"`
	SkuPartNumber    string    `gorm:"column:sku_part_number" json:"skuPartNumber"`
	CapabilityStatus string    `gorm:"column:capability_status" json:"capabilityStatus"`
	AppliesTo        string    `gorm:"column:applies_to" json:"appliesTo"`
	ActiveUnits      int64     `gorm:"column:active_units" json:"activeUnits"`
	ConsumedUnits    int64     `gorm:"column:consumed_units" json:"consumedUnits"`
	SuspendedUnits   int64     `gorm:"column:suspended_units" json:"suspendedUnits"`
	WarningUnits     int64     `gorm:"column:warning_units" json:"warningUnits"`
	TotalUnits       int64     `gorm:"column:total_units" json:"totalUnits"`
	AvailableUnits   int64     `gorm:"column:available_units" json:"availableUnits"`
	CaptureDate      time.Time `gorm:"column:capture_date" json:"captureDate"`
}

func (LicenseSku) TableName() string { return "licenseskus" }

func (l LicenseSku) Keys() (string, string) { return l.PartitionKey, l.RowKey }

// SetKeys derives the storage keys from the capture date and identity.
func (l *LicenseSku) SetKeys() {
	l.PartitionKey = l.CaptureDate.Format(CaptureDateFormat)
	l.RowKey = fmt.Sprintf("%s_%s", l.CustomerID, l.SkuID)
}
