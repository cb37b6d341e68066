package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prospector/internal/platform/metrics"
)

var tracer = otel.Tracer("prospector/geocode")

// Resolver turns a free-text address into a coordinate pair. The boolean is
// false when no coordinate could be obtained for any reason.
type Resolver interface {
	Resolve(ctx context.Context, address string) (Point, bool)
}

// Config is the lookup service configuration handed to NewClient.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
	statusOK       = "OK"
)

// StatusError is returned when the service answered with a non-OK status.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geocode status %s: %s", e.Status, e.Message)
	}
	return "geocode status " + e.Status
}

// TransportError covers network failures, timeouts and unexpected payloads.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "geocode transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type lookupResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat *float64 `json:"lat"`
				Lng *float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Client calls the Google geocoding endpoint once per Resolve.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("geocode API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("geocode base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve logs and swallows lookup failures: status failures at warn level,
// everything else at error level.
func (c *Client) Resolve(ctx context.Context, address string) (Point, bool) {
	ctx, span := tracer.Start(ctx, "Geocode.Client.Resolve")
	defer span.End()

	start := time.Now()
	point, err := c.Lookup(ctx, address)
	elapsed := time.Since(start)

	if err == nil {
		c.metrics.ObserveGeocodeLookup("ok", elapsed)
		return point, true
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		c.metrics.ObserveGeocodeLookup("status_failure", elapsed)
		c.logger.WarnContext(ctx, "geocode lookup returned no result",
			"address", address,
			"status", statusErr.Status,
			"error", err,
		)
		return Point{}, false
	}

	c.metrics.ObserveGeocodeLookup("transport_failure", elapsed)
	c.logger.ErrorContext(ctx, "geocode lookup failed",
		"address", address,
		"error", err,
	)
	return Point{}, false
}

// Lookup performs a single request and returns either the top-ranked point,
// a *StatusError or a *TransportError.
func (c *Client) Lookup(ctx context.Context, address string) (Point, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return Point{}, &TransportError{Err: fmt.Errorf("parse base URL: %w", err)}
	}
	q := endpoint.Query()
	q.Set("address", address)
	q.Set("key", c.cfg.APIKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Point{}, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Point{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Point{}, &TransportError{Err: fmt.Errorf("unexpected http status %d", resp.StatusCode)}
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return Point{}, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("geocode.status", body.Status))
	if body.Status != statusOK {
		return Point{}, &StatusError{Status: body.Status, Message: body.ErrorMessage}
	}
	if len(body.Results) == 0 {
		return Point{}, &TransportError{Err: errors.New("OK response without results")}
	}

	loc := body.Results[0].Geometry.Location
	if loc.Lat == nil || loc.Lng == nil {
		return Point{}, &TransportError{Err: errors.New("top result has no location")}
	}
	point, err := NewPoint(*loc.Lat, *loc.Lng)
	if err != nil {
		return Point{}, &TransportError{Err: err}
	}
	return point, nil
}
