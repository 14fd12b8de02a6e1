package intensity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// DefaultURL is the GB national carbon intensity endpoint for the current half hour.
const DefaultURL = "https://api.carbonintensity.org.uk/intensity/"

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "carbon-service"
	maxBodyBytes     = 1 << 20
)

// ErrMalformedPayload marks responses that do not carry data[0].intensity.actual.
var ErrMalformedPayload = errors.New("intensity: malformed payload")

// Observation is the reading for one interval. Only Actual is required.
type Observation struct {
	Actual   int
	Forecast int
	Index    string
	From     string
	To       string
}

// Source yields the current carbon intensity.
type Source interface {
	Current(ctx context.Context) (Observation, error)
}

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the carbon intensity API.
type Client struct {
	url        string
	httpClient HTTPDoer
	userAgent  string
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithTimeout sets the request timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient returns an API client. An empty url selects DefaultURL.
func NewClient(url string, logger *zap.Logger, opts ...Option) *Client {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current fetches the reading for the current interval.
func (c *Client) Current(ctx context.Context) (Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Observation{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Observation{}, fmt.Errorf("call intensity api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Observation{}, fmt.Errorf("read intensity response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("intensity api returned non-success",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 256)),
		)
		return Observation{}, fmt.Errorf("intensity api responded with status %d", resp.StatusCode)
	}

	obs, err := ParseObservation(body)
	if err != nil {
		return Observation{}, err
	}

	c.logger.Debug("intensity fetched",
		zap.Int("actual", obs.Actual),
		zap.String("from", obs.From),
		zap.String("to", obs.To),
	)
	return obs, nil
}

// ParseObservation extracts data[0] from an API response body.
func ParseObservation(body []byte) (Observation, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	entry := v.Get("data", "0")
	if entry == nil {
		return Observation{}, fmt.Errorf("%w: data[0] is missing", ErrMalformedPayload)
	}

	actual := entry.Get("intensity", "actual")
	if actual == nil || actual.Type() != fastjson.TypeNumber {
		return Observation{}, fmt.Errorf("%w: data[0].intensity.actual is missing", ErrMalformedPayload)
	}
	value, err := actual.Int()
	if err != nil {
		return Observation{}, fmt.Errorf("%w: data[0].intensity.actual: %v", ErrMalformedPayload, err)
	}
	if value < 0 {
		return Observation{}, fmt.Errorf("%w: negative intensity %d", ErrMalformedPayload, value)
	}

	return Observation{
		Actual:   value,
		Forecast: entry.GetInt("intensity", "forecast"),
		Index:    string(entry.GetStringBytes("intensity", "index")),
		From:     string(entry.GetStringBytes("from")),
		To:       string(entry.GetStringBytes("to")),
	}, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
