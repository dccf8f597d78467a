package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscriptionKeys(t *testing.T) {
	sub := NewSubscription("C1", "S1", "Prod", BillingTypeUsage, ProviderPartnerCenter, StatusActive)

	partition, row := sub.Keys()
	assert.Equal(t, SubscriptionsPartitionKey, partition)
	assert.Equal(t, "S1", row)
	assert.True(t, sub.Valid())
}

func TestSubscriptionValidity(t *testing.T) {
	assert.False(t, Subscription{SubscriptionID: "S1"}.Valid())
	assert.False(t, Subscription{CustomerID: "C1"}.Valid())
	assert.True(t, Subscription{SubscriptionID: "S1", CustomerID: "C1"}.Valid())
}

func TestSubscriptionJSONRoundTrip(t *testing.T) {
	sub := NewSubscription("C1", "S1", "Prod", BillingTypeLicense, ProviderDirect, StatusSuspended)

	raw, err := json.Marshal(sub)
	require.NoError(t, err)

	var decoded Subscription
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, sub, decoded)
}

func TestNewCustomerKeys(t *testing.T) {
	customer := NewCustomer("C1")

	partition, row := customer.Keys()
	assert.Equal(t, CustomersPartitionKey, partition)
	assert.Equal(t, "C1", row)
}

func TestUsageSetKeys(t *testing.T) {
	row := Usage{CustomerID: "C1", SubscriptionID: "S1", UniqueID: "u-1"}
	row.SetKeys()

	assert.Equal(t, "C1_S1", row.PartitionKey)
	assert.Equal(t, "u-1", row.RowKey)
}

func TestLicenseSkuSetKeys(t *testing.T) {
	row := LicenseSku{
		CustomerID:  "C1",
		SkuID:       "SKU-1",
		CaptureDate: time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC),
	}
	row.SetKeys()

	assert.Equal(t, "2026-03-15", row.PartitionKey, "partition is the capture date, not a timestamp")
	assert.Equal(t, "C1_SKU-1", row.RowKey)
}
