// Package fmp provides a client for the Financial Modeling Prep API,
// the secondary market data source.
package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/models"
)

const (
	DefaultBaseURL   = "https://financialmodelingprep.com/api/v3"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the MarketDataClient interface for FMP
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new FMP client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the provider
func (c *Client) Name() string {
	return "fmp"
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FMP API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("FMP API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// normalizeTicker strips the exchange suffix EODHD-style tickers carry
// ("BHP.AU" → "BHP") since FMP keys US symbols bare.
func normalizeTicker(ticker string) string {
	if idx := strings.Index(ticker, "."); idx > 0 {
		return ticker[:idx]
	}
	return ticker
}

// quoteResponse represents one entry from the /quote endpoint
type quoteResponse struct {
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	ChangesPercentage float64 `json:"changesPercentage"`
	MarketCap         float64 `json:"marketCap"`
	Volume            int64   `json:"volume"`
}

// GetQuote retrieves a live price snapshot
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	path := fmt.Sprintf("/quote/%s", normalizeTicker(ticker))

	var resp []quoteResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	if len(resp) == 0 || resp[0].Price <= 0 {
		return nil, fmt.Errorf("FMP returned no price for %s", ticker)
	}

	q := resp[0]
	return &models.Quote{
		Ticker:    ticker,
		Price:     q.Price,
		ChangePct: q.ChangesPercentage,
		MarketCap: q.MarketCap,
		Volume:    q.Volume,
		Source:    c.Name(),
		Timestamp: time.Now(),
	}, nil
}

// ratiosResponse represents one entry from the /ratios-ttm endpoint
type ratiosResponse struct {
	PERatioTTM       *float64 `json:"peRatioTTM"`
	PriceToBookTTM   *float64 `json:"priceToBookRatioTTM"`
	DividendYieldTTM *float64 `json:"dividendYielTTM"` // sic, upstream field name is misspelled
}

// profileResponse represents one entry from the /profile endpoint
type profileResponse struct {
	Price     *float64 `json:"price"`
	MarketCap *float64 `json:"mktCap"`
	EPS       *float64 `json:"eps"`
	Sector    string   `json:"sector"`
}

// GetFundamentals retrieves fundamental data by combining the TTM ratios
// and company profile endpoints. Missing fields stay nil.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalData, error) {
	symbol := normalizeTicker(ticker)

	var ratios []ratiosResponse
	ratiosErr := c.get(ctx, fmt.Sprintf("/ratios-ttm/%s", symbol), nil, &ratios)

	var profiles []profileResponse
	profileErr := c.get(ctx, fmt.Sprintf("/profile/%s", symbol), nil, &profiles)

	if ratiosErr != nil && profileErr != nil {
		return nil, fmt.Errorf("FMP fundamentals unavailable for %s: %w", ticker, ratiosErr)
	}

	data := &models.FundamentalData{
		Ticker:      ticker,
		Source:      c.Name(),
		LastUpdated: time.Now(),
	}

	if ratiosErr == nil && len(ratios) > 0 {
		data.PERatio = ratios[0].PERatioTTM
		data.PriceToBook = ratios[0].PriceToBookTTM
		data.DividendYield = ratios[0].DividendYieldTTM
	}
	if profileErr == nil && len(profiles) > 0 {
		data.Price = profiles[0].Price
		data.MarketCap = profiles[0].MarketCap
		data.EarningsPerShare = profiles[0].EPS
		data.Sector = profiles[0].Sector
	}

	if data.IsEmpty() {
		return nil, fmt.Errorf("FMP returned empty fundamentals for %s", ticker)
	}

	return data, nil
}

// dividendHistoryResponse represents the stock_dividend endpoint payload
type dividendHistoryResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date     string  `json:"date"`
		Dividend float64 `json:"dividend"`
	} `json:"historical"`
}

// GetDividends retrieves raw dividend events, most recent first.
func (c *Client) GetDividends(ctx context.Context, ticker string) ([]models.DividendEvent, error) {
	path := fmt.Sprintf("/historical-price-full/stock_dividend/%s", normalizeTicker(ticker))

	var resp dividendHistoryResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	events := make([]models.DividendEvent, 0, len(resp.Historical))
	for _, d := range resp.Historical {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		events = append(events, models.DividendEvent{
			Date:  date,
			Value: d.Dividend,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Date.After(events[j].Date)
	})

	return events, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
