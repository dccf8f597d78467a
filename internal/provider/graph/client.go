// Package graph implements the subscribed SKU collaborator for license
// billed subscriptions.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/provider"
)

// Client queries license SKU consumption per customer tenant.
type Client struct {
	http     *http.Client
	tokens   provider.TokenSource
	endpoint string
	adRoot   string
	creds    config.ProviderCredentials
}

// NewClient builds the graph client from configuration. Tokens are scoped
// per customer tenant at query time.
func NewClient(cfg config.Config, tokens provider.TokenSource) *Client {
	return &Client{
		http:     &http.Client{Timeout: 60 * time.Second},
		tokens:   tokens,
		endpoint: cfg.GraphEndpoint,
		adRoot:   cfg.ActiveDirectoryEndpoint,
		creds:    cfg.PartnerCenter,
	}
}

type skuPayload struct {
	SkuID            string `json:"skuId"`
	SkuPartNumber    string `json:"skuPartNumber"`
	CapabilityStatus string `json:"capabilityStatus"`
	AppliesTo        string `json:"appliesTo"`
	ConsumedUnits    int64  `json:"consumedUnits"`
	PrepaidUnits     struct {
		Enabled   int64 `json:"enabled"`
		Warning   int64 `json:"warning"`
		Suspended int64 `json:"suspended"`
	} `json:"prepaidUnits"`
}

// SubscribedSkus returns every subscribed SKU for the customer tenant.
func (c *Client) SubscribedSkus(ctx context.Context, customerID string) ([]provider.SubscribedSku, error) {
	// The token is acquired against the customer's tenant authority so the
	// query is scoped to that customer.
	authority := fmt.Sprintf("%s/%s", c.adRoot, customerID)
	token, err := c.tokens.Token(ctx, authority, c.creds.AppID, c.creds.AppSecret, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("graph token for customer %s: %w", customerID, err)
	}

	path := fmt.Sprintf("/v1.0/%s/subscribedSkus", url.PathEscape(customerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list subscribed skus for customer %s: %w", customerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list subscribed skus for customer %s: unexpected status %d", customerID, resp.StatusCode)
	}

	var collection struct {
		Value []skuPayload `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("decode subscribed skus: %w", err)
	}

	skus := make([]provider.SubscribedSku, 0, len(collection.Value))
	for _, item := range collection.Value {
		skus = append(skus, provider.SubscribedSku{
			SkuID:            item.SkuID,
			SkuPartNumber:    item.SkuPartNumber,
			CapabilityStatus: item.CapabilityStatus,
			AppliesTo:        item.AppliesTo,
			EnabledUnits:     item.PrepaidUnits.Enabled,
			WarningUnits:     item.PrepaidUnits.Warning,
			SuspendedUnits:   item.PrepaidUnits.Suspended,
			ConsumedUnits:    item.ConsumedUnits,
		})
	}
	return skus, nil
}
