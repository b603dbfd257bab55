package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/expensehub/expensehub/internal"
)

type Config struct {
	APIURL   string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// Client fetches exchange rates from an external rates API and caches
// them in memory. A stale cached rate is preferred over a hard failure.
type Client struct {
	apiURL   string
	apiKey   string
	timeout  time.Duration
	cacheTTL time.Duration
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]cachedRate
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	return &Client{
		apiURL:   config.APIURL,
		apiKey:   config.APIKey,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		logger:   logger,
		cache:    make(map[string]cachedRate),
	}
}

func (c *Client) GetRate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}

	key := from + ":" + to

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()

	if ok && time.Since(cached.fetchedAt) < c.cacheTTL {
		return cached.rate, nil
	}

	rate, err := c.fetchRate(ctx, from, to)
	if err != nil {
		if ok {
			c.logger.Warn("rate fetch failed, serving stale cached rate",
				"from", from,
				"to", to,
				"cached_age", time.Since(cached.fetchedAt).String(),
				"error", err)
			return cached.rate, nil
		}
		return 0, internal.NewExternalError("exchange rate lookup failed", internal.ErrCodeRateLookupFailed, err)
	}

	c.mu.Lock()
	c.cache[key] = cachedRate{rate: rate, fetchedAt: time.Now()}
	c.mu.Unlock()

	return rate, nil
}

func (c *Client) fetchRate(ctx context.Context, from, to string) (float64, error) {
	q := url.Values{}
	q.Set("base", from)
	q.Set("symbols", to)
	if c.apiKey != "" {
		q.Set("access_key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/latest?%s", c.apiURL, q.Encode())

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create rates request: %w", err)
	}

	client := &http.Client{Timeout: c.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rates API returned status %d", resp.StatusCode)
	}

	var apiResponse struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return 0, fmt.Errorf("failed to decode rates response: %w", err)
	}

	rate, ok := apiResponse.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("rates API returned no rate for %s", to)
	}

	c.logger.Debug("fetched exchange rate", "from", from, "to", to, "rate", rate)

	return rate, nil
}
