// Package currency fetches the local-currency conversion rate for earnings.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"workhours/internal/cache"
	"workhours/internal/core"
	ports "workhours/internal/sources"
)

const (
	DefaultURL = "http://www.geoplugin.net/json.gp"
	DefaultTTL = time.Hour
	rateKey    = "rate"
)

var _ ports.CurrencyProvider = (*Client)(nil)

type Config struct {
	URL string
	TTL time.Duration
	// Code selects an entry when the API answers with a "rates" map.
	Code       string
	HTTPClient *http.Client
}

// Client caches a single rate for TTL. Failed or zero-rate lookups are not cached.
type Client struct {
	url    string
	code   string
	http   *http.Client
	lru    *cache.LRUCache[core.CurrencyRate]
	loader *cache.Loader[core.CurrencyRate]
}

func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		url:  cfg.URL,
		code: strings.ToUpper(cfg.Code),
		http: cfg.HTTPClient,
		lru:  cache.NewLRUCache[core.CurrencyRate](1, cfg.TTL),
	}
	c.loader = cache.NewLoader[core.CurrencyRate](c.lru, func(ctx context.Context, _ string) (core.CurrencyRate, error) {
		return c.fetch(ctx)
	})
	return c
}

// Cache exposes the underlying cache for registration with a cache.Manager.
func (c *Client) Cache() cache.Cleaner { return c.lru }

func (c *Client) Rate(ctx context.Context) (core.CurrencyRate, error) {
	return c.loader.Get(ctx, rateKey)
}

func (c *Client) Refresh(ctx context.Context) (core.CurrencyRate, error) {
	c.loader.Invalidate(rateKey)
	return c.Rate(ctx)
}

type apiResponse struct {
	CurrencyCode string                     `json:"geoplugin_currencyCode"`
	Converter    json.RawMessage            `json:"geoplugin_currencyConverter"`
	Base         string                     `json:"base"`
	Rates        map[string]json.RawMessage `json:"rates"`
}

func (c *Client) fetch(ctx context.Context) (core.CurrencyRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return core.CurrencyRate{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return core.CurrencyRate{}, fmt.Errorf("fetch currency rate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return core.CurrencyRate{}, fmt.Errorf("fetch currency rate: status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.CurrencyRate{}, fmt.Errorf("decode currency rate: %w", err)
	}
	rate := c.parse(body)
	if rate.Rate <= 0 {
		return core.CurrencyRate{}, fmt.Errorf("currency api returned no usable rate")
	}
	return rate, nil
}

func (c *Client) parse(body apiResponse) core.CurrencyRate {
	if len(body.Rates) > 0 {
		code := c.code
		if code == "" && len(body.Rates) == 1 {
			for k := range body.Rates {
				code = k
			}
		}
		if v, ok := body.Rates[code]; ok {
			return core.CurrencyRate{Code: code, Rate: parseLoose(v)}
		}
	}
	return core.CurrencyRate{Code: body.CurrencyCode, Rate: parseLoose(body.Converter)}
}

// parseLoose reads a number that may be encoded as a JSON string.
func parseLoose(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	f, _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
