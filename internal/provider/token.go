package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TokenSource acquires app-only access tokens scoped to a resource.
type TokenSource interface {
	Token(ctx context.Context, authority, appID, appSecret, resource string) (string, error)
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// tokenManager is a caching client-credentials token source. Tokens are
// cached per (authority, appID, resource) until shortly before expiry.
type tokenManager struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cachedToken
}

// NewTokenManager returns the production token source.
func NewTokenManager() TokenSource {
	return &tokenManager{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  make(map[string]cachedToken),
	}
}

func (t *tokenManager) Token(ctx context.Context, authority, appID, appSecret, resource string) (string, error) {
	key := strings.Join([]string{authority, appID, resource}, "|")

	t.mu.Lock()
	cached, ok := t.cache[key]
	t.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {appID},
		"client_secret": {appSecret},
		"resource":      {resource},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authority+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("acquire token from %s: %w", authority, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("acquire token from %s: unexpected status %d", authority, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	ttl := time.Hour
	if seconds, err := strconv.Atoi(body.ExpiresIn); err == nil && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}

	t.mu.Lock()
	t.cache[key] = cachedToken{
		value: body.AccessToken,
		// Renew a minute early to avoid using a token at its expiry edge.
		expiresAt: time.Now().Add(ttl - time.Minute),
	}
	t.mu.Unlock()

	return body.AccessToken, nil
}
