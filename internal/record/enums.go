package record

// BillingType classifies how a subscription is billed.
type BillingType string

const (
	BillingTypeUsage   BillingType = "Usage"
	BillingTypeLicense BillingType = "License"
	BillingTypeNone    BillingType = "None"
)

// Provider identifies the upstream a subscription was sourced from.
type Provider string

const (
	ProviderDirect        Provider = "Direct"
	ProviderPartnerCenter Provider = "PartnerCenter"
)

// Status is the lifecycle state of a subscription as reported upstream.
type Status string

const (
	StatusActive    Status = "Active"
	StatusSuspended Status = "Suspended"
	StatusDeleted   Status = "Deleted"
	StatusNone      Status = "None"
)
