// Package direct implements the usage aggregates collaborator for
// subscriptions billed directly, via the Azure Resource Manager commerce
// API.
package direct

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/provider"
	"github.com/shopspring/decimal"
)

const apiVersion = "2015-06-01-preview"

// Client retrieves usage aggregates for directly billed subscriptions.
// Customer enumeration is not available through this channel.
type Client struct {
	http      *http.Client
	tokens    provider.TokenSource
	endpoint  string
	authority string
	creds     config.ProviderCredentials
}

// NewClient builds the direct usage client from configuration.
func NewClient(cfg config.Config, tokens provider.TokenSource) *Client {
	return &Client{
		http:      &http.Client{Timeout: 60 * time.Second},
		tokens:    tokens,
		endpoint:  cfg.ResourceManagerEndpoint,
		authority: fmt.Sprintf("%s/%s", cfg.ActiveDirectoryEndpoint, cfg.Direct.TenantID),
		creds:     cfg.Direct,
	}
}

type aggregatePayload struct {
	Name       string `json:"name"`
	Properties struct {
		MeterID          string          `json:"meterId"`
		MeterCategory    string          `json:"meterCategory"`
		MeterSubCategory string          `json:"meterSubCategory"`
		Quantity         decimal.Decimal `json:"quantity"`
		Unit             string          `json:"unit"`
		UsageStartTime   time.Time       `json:"usageStartTime"`
		UsageEndTime     time.Time       `json:"usageEndTime"`
		InstanceData     string          `json:"instanceData"`
	} `json:"properties"`
}

type instanceData struct {
	Resource struct {
		Location    string            `json:"location"`
		ResourceURI string            `json:"resourceUri"`
		Tags        map[string]string `json:"tags"`
	} `json:"Microsoft.Resources"`
}

func (p aggregatePayload) toRecord() provider.UtilizationRecord {
	record := provider.UtilizationRecord{
		ResourceID:     p.Properties.MeterID,
		ResourceName:   p.Name,
		Category:       p.Properties.MeterCategory,
		Subcategory:    p.Properties.MeterSubCategory,
		Quantity:       p.Properties.Quantity,
		Unit:           p.Properties.Unit,
		UsageStartTime: p.Properties.UsageStartTime,
		UsageEndTime:   p.Properties.UsageEndTime,
	}

	// Instance metadata arrives as an embedded JSON document.
	if p.Properties.InstanceData != "" {
		var instance instanceData
		if err := json.Unmarshal([]byte(p.Properties.InstanceData), &instance); err == nil {
			record.InstanceLocation = instance.Resource.Location
			record.ResourceURI = instance.Resource.ResourceURI
			record.Tags = instance.Resource.Tags
		}
	}
	return record
}

type aggregateCollection struct {
	Value    []aggregatePayload `json:"value"`
	NextLink string             `json:"nextLink"`
}

// Query requests the first page of daily usage aggregates for the
// subscription window. The customer id is unused for direct billing.
func (c *Client) Query(ctx context.Context, _ string, subscriptionID string, start, end time.Time) (*provider.UtilizationPage, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Commerce/UsageAggregates?reportedStartTime=%s&reportedEndTime=%s&aggregationGranularity=Daily&showDetails=true&api-version=%s",
		url.PathEscape(subscriptionID),
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
		apiVersion,
	)
	return c.page(ctx, path)
}

// Next follows the nextLink continuation returned by a previous page.
func (c *Client) Next(ctx context.Context, continuation string) (*provider.UtilizationPage, error) {
	return c.page(ctx, strings.TrimPrefix(continuation, c.endpoint))
}

func (c *Client) page(ctx context.Context, path string) (*provider.UtilizationPage, error) {
	token, err := c.tokens.Token(ctx, c.authority, c.creds.AppID, c.creds.AppSecret, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("direct token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query usage aggregates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query usage aggregates: unexpected status %d", resp.StatusCode)
	}

	var collection aggregateCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("decode usage aggregates: %w", err)
	}

	page := &provider.UtilizationPage{
		Records:      make([]provider.UtilizationRecord, 0, len(collection.Value)),
		Continuation: collection.NextLink,
	}
	for _, item := range collection.Value {
		page.Records = append(page.Records, item.toRecord())
	}
	return page, nil
}
