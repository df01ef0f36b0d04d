package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/expense-approval/internal"
)

// Converter converts an amount between ISO 4217 currencies.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

type cachedRates struct {
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

// Client talks to an exchangerate-api compatible service
// (GET {base}/v4/latest/{FROM}) and caches rate tables per base currency.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedRates
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		ttl:     cfg.CacheTTL,
		logger:  logger,
		now:     time.Now,
		cache:   make(map[string]cachedRates),
	}
}

// Convert returns amount expressed in the target currency, rounded to cents.
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, to = Normalize(from), Normalize(to)
	if !Valid(from) {
		return decimal.Zero, apperrors.NewValidationFieldError("currency", fmt.Sprintf("invalid currency code %q", from), apperrors.ErrCodeInvalidCurrency)
	}
	if !Valid(to) {
		return decimal.Zero, apperrors.NewValidationFieldError("currency", fmt.Sprintf("invalid currency code %q", to), apperrors.ErrCodeInvalidCurrency)
	}
	if from == to {
		return amount.Round(2), nil
	}

	rates, err := c.rates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates[to]
	if !ok {
		return decimal.Zero, apperrors.NewExternalError(fmt.Sprintf("no exchange rate from %s to %s", from, to), apperrors.ErrCodeCurrencyConversion, nil)
	}
	return amount.Mul(rate).Round(2), nil
}

func (c *Client) rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	c.mu.RLock()
	entry, ok := c.cache[base]
	c.mu.RUnlock()
	if ok && c.ttl > 0 && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.rates, nil
	}

	rates, err := c.fetch(ctx, base)
	if err != nil {
		return nil, apperrors.NewExternalError("currency conversion failed", apperrors.ErrCodeCurrencyConversion, err)
	}

	c.mu.Lock()
	c.cache[base] = cachedRates{rates: rates, fetchedAt: c.now()}
	c.mu.Unlock()
	return rates, nil
}

func (c *Client) fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v4/latest/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("exchange rate request failed", "base", base, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("exchange rate service returned error", "base", base, "status_code", resp.StatusCode)
		return nil, fmt.Errorf("exchange rate service returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode exchange rates: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate service returned no rates for %s", base)
	}

	c.logger.Debug("exchange rates refreshed", "base", base, "count", len(body.Rates), "duration_ms", c.now().Sub(start).Milliseconds())
	return body.Rates, nil
}

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code looks like an ISO 4217 alphabetic code.
func Valid(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
