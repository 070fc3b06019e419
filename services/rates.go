package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"agencyops/backend/models"
)

const (
	DefaultRatesURL = "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies"
	DefaultRatesTTL = 12 * time.Hour

	defaultRatesTimeout = 10 * time.Second
)

// RateProvider returns how many units of each currency one unit of base buys.
// Keys are upper-case currency codes. Callers must not modify the map.
type RateProvider interface {
	Rates(ctx context.Context, base models.Currency) (map[string]float64, error)
}

type rateSlot struct {
	base      models.Currency
	rates     map[string]float64
	fetchedAt time.Time
}

// RateClient fetches rates over HTTP and keeps the last response in a single
// slot keyed by base currency. Concurrent misses may fetch in parallel; the
// last response stored wins.
type RateClient struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu   sync.Mutex
	slot rateSlot
}

type RateOption func(*RateClient)

func WithHTTPClient(client *http.Client) RateOption {
	return func(c *RateClient) { c.http = client }
}

func WithClock(now func() time.Time) RateOption {
	return func(c *RateClient) { c.now = now }
}

func WithTTL(ttl time.Duration) RateOption {
	return func(c *RateClient) { c.ttl = ttl }
}

func WithTimeout(timeout time.Duration) RateOption {
	return func(c *RateClient) { c.http.Timeout = timeout }
}

// NewRateClient creates a client for the currency API rooted at baseURL
func NewRateClient(baseURL string, opts ...RateOption) *RateClient {
	if baseURL == "" {
		baseURL = DefaultRatesURL
	}
	c := &RateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRatesTimeout},
		ttl:     DefaultRatesTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rates returns cached rates for base while they are younger than the TTL,
// otherwise fetches fresh ones. A failed fetch leaves the cache untouched
// and never falls back to stale rates.
func (c *RateClient) Rates(ctx context.Context, base models.Currency) (map[string]float64, error) {
	if rates, ok := c.cached(base); ok {
		return rates, nil
	}

	rates, err := c.fetch(ctx, base)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.slot = rateSlot{base: base, rates: rates, fetchedAt: c.now()}
	c.mu.Unlock()

	return rates, nil
}

func (c *RateClient) cached(base models.Currency) (map[string]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot.rates == nil || c.slot.base != base {
		return nil, false
	}
	if c.now().Sub(c.slot.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.slot.rates, true
}

func (c *RateClient) fetch(ctx context.Context, base models.Currency) (map[string]float64, error) {
	code := strings.ToLower(string(base))
	url := fmt.Sprintf("%s/%s.json", c.baseURL, code)

	fail := func(err error) error {
		return &Error{
			Kind:    KindRateFetchFailure,
			Message: fmt.Sprintf("failed to fetch exchange rates for %s", base),
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fail(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("Rate API error: %s", string(body))
		return nil, fail(fmt.Errorf("rate API returned status %d", resp.StatusCode))
	}

	// {"date": "2024-03-06", "egp": {"usd": 0.032, ...}}
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fail(fmt.Errorf("error decoding response: %w", err))
	}

	raw, ok := payload[code]
	if !ok {
		return nil, fail(fmt.Errorf("response has no %q rates", code))
	}

	var lower map[string]float64
	if err := json.Unmarshal(raw, &lower); err != nil {
		return nil, fail(fmt.Errorf("error decoding %q rates: %w", code, err))
	}

	rates := make(map[string]float64, len(lower))
	for k, v := range lower {
		rates[strings.ToUpper(k)] = v
	}
	return rates, nil
}
