// Package eodhd provides a client for the EODHD API, the primary
// market data source.
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/models"
)

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// Client implements the MarketDataClient interface for EODHD
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

// NewClient creates a new EODHD client
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
	return "eodhd"
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

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

// realTimeResponse represents the real-time quote API response
type realTimeResponse struct {
	Code      string      `json:"code"`
	Close     flexFloat64 `json:"close"`
	ChangeP   flexFloat64 `json:"change_p"`
	Volume    flexFloat64 `json:"volume"`
	Timestamp int64       `json:"timestamp"`
}

// GetQuote retrieves a live price snapshot
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	path := fmt.Sprintf("/real-time/%s", ticker)

	var resp realTimeResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	if resp.Close <= 0 {
		return nil, fmt.Errorf("EODHD returned no price for %s", ticker)
	}

	ts := time.Now()
	if resp.Timestamp > 0 {
		ts = time.Unix(resp.Timestamp, 0)
	}

	return &models.Quote{
		Ticker:    ticker,
		Price:     float64(resp.Close),
		ChangePct: float64(resp.ChangeP),
		Volume:    int64(resp.Volume),
		Source:    c.Name(),
		Timestamp: ts,
	}, nil
}

// fundamentalsResponse represents the API response structure
type fundamentalsResponse struct {
	General struct {
		Code   string `json:"Code"`
		Name   string `json:"Name"`
		Sector string `json:"Sector"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization *float64 `json:"MarketCapitalization"`
		PERatio              *float64 `json:"PERatio"`
		EarningsShare        *float64 `json:"EarningsShare"`
		DividendYield        *float64 `json:"DividendYield"`
	} `json:"Highlights"`
	Valuation struct {
		PriceBookMRQ *float64 `json:"PriceBookMRQ"`
	} `json:"Valuation"`
}

// GetFundamentals retrieves fundamental data. Fields EODHD does not
// report come back nil so the fusion layer can back-fill them.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalData, error) {
	path := fmt.Sprintf("/fundamentals/%s", ticker)

	var resp fundamentalsResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	return &models.FundamentalData{
		Ticker:           ticker,
		PERatio:          resp.Highlights.PERatio,
		PriceToBook:      resp.Valuation.PriceBookMRQ,
		DividendYield:    resp.Highlights.DividendYield,
		EarningsPerShare: resp.Highlights.EarningsShare,
		MarketCap:        resp.Highlights.MarketCapitalization,
		Sector:           resp.General.Sector,
		Source:           c.Name(),
		LastUpdated:      time.Now(),
	}, nil
}

// dividendResponse represents one entry from the dividends API
type dividendResponse struct {
	Date  string      `json:"date"`
	Value flexFloat64 `json:"value"`
}

// GetDividends retrieves raw dividend events for the trailing year,
// most recent first.
func (c *Client) GetDividends(ctx context.Context, ticker string) ([]models.DividendEvent, error) {
	path := fmt.Sprintf("/div/%s", ticker)

	params := url.Values{}
	params.Set("from", time.Now().AddDate(-1, 0, 0).Format("2006-01-02"))

	var resp []dividendResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	events := make([]models.DividendEvent, 0, len(resp))
	for _, d := range resp {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		events = append(events, models.DividendEvent{
			Date:  date,
			Value: float64(d.Value),
		})
	}

	// EODHD returns oldest first; callers expect most recent first
	sort.Slice(events, func(i, j int) bool {
		return events[i].Date.After(events[j].Date)
	})

	return events, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
