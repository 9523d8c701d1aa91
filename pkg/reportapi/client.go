package reportapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// Outcome labels passed to an Observer.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeStatus    = "status_error"
	OutcomeParse     = "parse_error"
)

// Observer is notified once per request.
type Observer func(outcome string, elapsed time.Duration)

type Options struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	timeout      time.Duration
	limiter      *rate.Limiter
	strictStatus bool
	logger       *zap.Logger
	observer     Observer
}

type Option func(*Options)

func WithBaseURL(baseURL string) Option {
	return func(o *Options) { o.baseURL = baseURL }
}

func WithToken(token string) Option {
	return func(o *Options) { o.token = token }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.timeout = d }
}

// WithRateLimit paces outgoing requests. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Options) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithStrictStatus controls whether non-2xx responses fail with *StatusError.
// When off the body is decoded regardless of status.
func WithStrictStatus(strict bool) Option {
	return func(o *Options) { o.strictStatus = strict }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

func WithObserver(fn Observer) Option {
	return func(o *Options) { o.observer = fn }
}

// Client performs authenticated GET requests against the reporting API.
type Client struct {
	baseURL      string
	token        string
	http         *http.Client
	limiter      *rate.Limiter
	strictStatus bool
	logger       *zap.Logger
	observer     Observer
}

// New builds a Client. Base URL and token are required.
func New(opts ...Option) (*Client, error) {
	options := &Options{
		timeout:      30 * time.Second,
		strictStatus: true,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.baseURL == "" {
		return nil, errors.New("report API base URL cannot be empty")
	}
	if options.token == "" {
		return nil, errors.New("report API token cannot be empty")
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.timeout}
	}
	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:      strings.TrimRight(options.baseURL, "/") + "/",
		token:        options.token,
		http:         httpClient,
		limiter:      options.limiter,
		strictStatus: options.strictStatus,
		logger:       logger.Named("reportapi"),
		observer:     options.observer,
	}, nil
}

// BaseURL returns the normalized base URL, always ending in a slash.
func (c *Client) BaseURL() string { return c.baseURL }

// URL resolves a path relative to the base URL. Absolute URLs pass through.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + strings.TrimLeft(path, "/")
}

// Fetch GETs path and decodes the JSON body into dest.
func (c *Client) Fetch(ctx context.Context, path string, dest any) error {
	url := c.URL(path)
	start := time.Now()

	outcome, err := c.fetch(ctx, url, dest)
	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer(outcome, elapsed)
	}

	if err != nil {
		c.logger.Warn("report API request failed",
			zap.String("url", url),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return err
	}

	c.logger.Debug("report API request completed",
		zap.String("url", url),
		zap.Duration("elapsed", elapsed))
	return nil
}

func (c *Client) fetch(ctx context.Context, url string, dest any) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return OutcomeTransport, &TransportError{URL: url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return OutcomeTransport, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return OutcomeTransport, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return OutcomeTransport, &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	if c.strictStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return OutcomeStatus, &StatusError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       truncate(body, maxErrorBody),
		}
	}

	if err := decode(body, dest); err != nil {
		return OutcomeParse, &ParseError{URL: url, Err: err}
	}
	return OutcomeOK, nil
}

func decode(body []byte, dest any) error {
	if !json.Valid(body) {
		return errors.New("response body is not valid JSON")
	}
	if raw, ok := dest.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	return json.Unmarshal(body, dest)
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
