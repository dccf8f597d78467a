// Package partnercenter implements the Partner Center REST collaborators:
// customer and subscription enumeration, paginated Azure utilization, and
// the Azure rate card.
package partnercenter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/provider"
	"github.com/peekbilling/importer/internal/ratecard"
	"github.com/shopspring/decimal"
)

// pageSize bounds one utilization page.
const pageSize = 500

// Client talks to the Partner Center API with app-only credentials.
type Client struct {
	http      *http.Client
	tokens    provider.TokenSource
	endpoint  string
	authority string
	creds     config.ProviderCredentials
}

// NewClient builds the Partner Center client from configuration.
func NewClient(cfg config.Config, tokens provider.TokenSource) *Client {
	return &Client{
		http:      &http.Client{Timeout: 60 * time.Second},
		tokens:    tokens,
		endpoint:  cfg.PartnerCenterEndpoint,
		authority: fmt.Sprintf("%s/%s", cfg.ActiveDirectoryEndpoint, cfg.PartnerCenter.TenantID),
		creds:     cfg.PartnerCenter,
	}
}

type resourceCollection[T any] struct {
	TotalCount int `json:"totalCount"`
	Items      []T `json:"items"`
	Links      struct {
		Next struct {
			URI string `json:"uri"`
		} `json:"next"`
	} `json:"links"`
}

type customerPayload struct {
	ID             string `json:"id"`
	CompanyProfile struct {
		CompanyName string `json:"companyName"`
		Domain      string `json:"domain"`
	} `json:"companyProfile"`
	BillingProfile struct {
		DefaultAddress struct {
			City       string `json:"city"`
			State      string `json:"state"`
			PostalCode string `json:"postalCode"`
		} `json:"defaultAddress"`
	} `json:"billingProfile"`
}

func (p customerPayload) toCustomer() provider.Customer {
	return provider.Customer{
		ID:          p.ID,
		CompanyName: p.CompanyProfile.CompanyName,
		Domain:      p.CompanyProfile.Domain,
		Billing: provider.Address{
			City:       p.BillingProfile.DefaultAddress.City,
			State:      p.BillingProfile.DefaultAddress.State,
			PostalCode: p.BillingProfile.DefaultAddress.PostalCode,
		},
	}
}

type subscriptionPayload struct {
	ID           string `json:"id"`
	FriendlyName string `json:"friendlyName"`
	BillingType  string `json:"billingType"`
	Status       string `json:"status"`
}

type utilizationPayload struct {
	Resource struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Category    string `json:"category"`
		Subcategory string `json:"subcategory"`
	} `json:"resource"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	UsageStartTime time.Time       `json:"usageStartTime"`
	UsageEndTime   time.Time       `json:"usageEndTime"`
	InstanceData   struct {
		Location    string            `json:"location"`
		ResourceURI string            `json:"resourceUri"`
		Tags        map[string]string `json:"tags"`
	} `json:"instanceData"`
}

func (p utilizationPayload) toRecord() provider.UtilizationRecord {
	return provider.UtilizationRecord{
		ResourceID:       p.Resource.ID,
		ResourceName:     p.Resource.Name,
		Category:         p.Resource.Category,
		Subcategory:      p.Resource.Subcategory,
		Quantity:         p.Quantity,
		Unit:             p.Unit,
		UsageStartTime:   p.UsageStartTime,
		UsageEndTime:     p.UsageEndTime,
		InstanceLocation: p.InstanceData.Location,
		ResourceURI:      p.InstanceData.ResourceURI,
		Tags:             p.InstanceData.Tags,
	}
}

// ListCustomers returns all customers visible to the partner account.
func (c *Client) ListCustomers(ctx context.Context) ([]provider.Customer, error) {
	var collection resourceCollection[customerPayload]
	if err := c.get(ctx, "/v1/customers", &collection); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	customers := make([]provider.Customer, 0, len(collection.Items))
	for _, item := range collection.Items {
		customers = append(customers, item.toCustomer())
	}
	return customers, nil
}

// GetCustomer fetches the extended profile for one customer.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*provider.Customer, error) {
	var payload customerPayload
	if err := c.get(ctx, "/v1/customers/"+url.PathEscape(customerID), &payload); err != nil {
		return nil, fmt.Errorf("get customer %s: %w", customerID, err)
	}
	customer := payload.toCustomer()
	return &customer, nil
}

// ListSubscriptions returns all subscriptions for one customer.
func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]provider.Subscription, error) {
	var collection resourceCollection[subscriptionPayload]
	path := fmt.Sprintf("/v1/customers/%s/subscriptions", url.PathEscape(customerID))
	if err := c.get(ctx, path, &collection); err != nil {
		return nil, fmt.Errorf("list subscriptions for customer %s: %w", customerID, err)
	}

	subscriptions := make([]provider.Subscription, 0, len(collection.Items))
	for _, item := range collection.Items {
		subscriptions = append(subscriptions, provider.Subscription(item))
	}
	return subscriptions, nil
}

// Query requests the first utilization page for the subscription window at
// daily granularity.
func (c *Client) Query(ctx context.Context, customerID, subscriptionID string, start, end time.Time) (*provider.UtilizationPage, error) {
	path := fmt.Sprintf("/v1/customers/%s/subscriptions/%s/utilizations/azure?start_time=%s&end_time=%s&granularity=daily&size=%d",
		url.PathEscape(customerID),
		url.PathEscape(subscriptionID),
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
		pageSize,
	)
	return c.utilizationPage(ctx, path)
}

// Next follows a continuation link returned by a previous page.
func (c *Client) Next(ctx context.Context, continuation string) (*provider.UtilizationPage, error) {
	return c.utilizationPage(ctx, continuation)
}

func (c *Client) utilizationPage(ctx context.Context, path string) (*provider.UtilizationPage, error) {
	var collection resourceCollection[utilizationPayload]
	if err := c.get(ctx, path, &collection); err != nil {
		return nil, fmt.Errorf("query utilization: %w", err)
	}

	page := &provider.UtilizationPage{
		Records:      make([]provider.UtilizationRecord, 0, len(collection.Items)),
		Continuation: collection.Links.Next.URI,
	}
	for _, item := range collection.Items {
		page.Records = append(page.Records, item.toRecord())
	}
	return page, nil
}

type rateCardPayload struct {
	Currency string `json:"currency"`
	Meters   []struct {
		ID               string                     `json:"id"`
		Name             string                     `json:"name"`
		Category         string                     `json:"category"`
		Subcategory      string                     `json:"subcategory"`
		Unit             string                     `json:"unit"`
		IncludedQuantity decimal.Decimal            `json:"includedQuantity"`
		Rates            map[string]decimal.Decimal `json:"rates"`
	} `json:"meters"`
}

// RateCard fetches the Azure rate card. Tier breaks arrive as a map keyed
// by quantity break and are normalized into ascending tiers.
func (c *Client) RateCard(ctx context.Context) (*ratecard.Card, error) {
	var payload rateCardPayload
	if err := c.get(ctx, "/v1/ratecards/azure", &payload); err != nil {
		return nil, fmt.Errorf("get rate card: %w", err)
	}

	card := &ratecard.Card{
		Currency: payload.Currency,
		Meters:   make([]ratecard.Meter, 0, len(payload.Meters)),
	}
	for _, m := range payload.Meters {
		tiers := make([]ratecard.Tier, 0, len(m.Rates))
		for breakKey, rate := range m.Rates {
			quantityBreak, err := decimal.NewFromString(breakKey)
			if err != nil {
				return nil, fmt.Errorf("rate card meter %s: invalid tier break %q", m.ID, breakKey)
			}
			tiers = append(tiers, ratecard.Tier{Break: quantityBreak, Rate: rate})
		}
		sort.Slice(tiers, func(a, b int) bool { return tiers[a].Break.LessThan(tiers[b].Break) })

		card.Meters = append(card.Meters, ratecard.Meter{
			ID:               m.ID,
			Name:             m.Name,
			Category:         m.Category,
			Subcategory:      m.Subcategory,
			Unit:             m.Unit,
			IncludedQuantity: m.IncludedQuantity,
			Tiers:            tiers,
		})
	}
	card.Index()
	return card, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	token, err := c.tokens.Token(ctx, c.authority, c.creds.AppID, c.creds.AppSecret, c.endpoint)
	if err != nil {
		return fmt.Errorf("partner center token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
