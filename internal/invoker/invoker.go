package invoker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	taskerrors "github.com/flunq-io/restinvoke/pkg/errors"
)

// Method is the HTTP method of an invocation
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// ParseMethod maps a configured method literal to a Method.
// Only the exact literal "POST" selects POST; anything else, including
// an empty value and case variants such as "post", selects GET.
func ParseMethod(literal string) Method {
	if literal == string(MethodPost) {
		return MethodPost
	}
	return MethodGet
}

// InvocationRequest describes one outbound call. Body is only set for POST.
type InvocationRequest struct {
	URL    *url.URL
	Method Method
	Body   *string
}

// Config holds the connection pool and request settings of an Invoker
type Config struct {
	// MaxTotal caps concurrent outbound calls across all routes.
	MaxTotal int
	// MaxPerRoute caps concurrent connections to a single host.
	MaxPerRoute int
	// Timeout bounds a whole call. Zero means no timeout.
	Timeout     time.Duration
	ContentType string
	UserAgent   string
}

// DefaultConfig returns the default pool settings: 200 connections in
// total, 200 per route and no request timeout.
func DefaultConfig() Config {
	return Config{
		MaxTotal:    200,
		MaxPerRoute: 200,
		ContentType: "text/plain; charset=utf-8",
		UserAgent:   "flunq-restinvoke/1.0",
	}
}

// Invoker performs blocking HTTP GET and POST calls through one pooled
// client. It is safe for concurrent use.
type Invoker struct {
	config     Config
	transport  *http.Transport
	httpClient *http.Client
	slots      *semaphore.Weighted
	logger     *zap.Logger
}

// New creates an Invoker with its own connection pool
func New(config Config, logger *zap.Logger) *Invoker {
	defaults := DefaultConfig()
	if config.MaxTotal <= 0 {
		config.MaxTotal = defaults.MaxTotal
	}
	if config.MaxPerRoute <= 0 {
		config.MaxPerRoute = defaults.MaxPerRoute
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = config.MaxTotal
	transport.MaxIdleConnsPerHost = config.MaxPerRoute
	transport.MaxConnsPerHost = config.MaxPerRoute

	logger.Debug("Created HTTP invoker",
		zap.Int("max_total", config.MaxTotal),
		zap.Int("max_per_route", config.MaxPerRoute),
		zap.Duration("timeout", config.Timeout))

	return &Invoker{
		config:    config,
		transport: transport,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		slots:  semaphore.NewWeighted(int64(config.MaxTotal)),
		logger: logger,
	}
}

// ParseURI parses a resolved service URL. Only absolute http and https
// URLs are accepted.
func ParseURI(raw string) (*url.URL, error) {
	uri, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, taskerrors.NetworkFailure("", raw, fmt.Errorf("malformed URI: %w", err))
	}
	if uri.Scheme != "http" && uri.Scheme != "https" {
		return nil, taskerrors.NetworkFailure("", raw, fmt.Errorf("unsupported URI scheme %q", uri.Scheme))
	}
	if uri.Host == "" {
		return nil, taskerrors.NetworkFailure("", raw, fmt.Errorf("URI has no host"))
	}
	return uri, nil
}

// InvokeGet performs a GET and returns the full response body
func (i *Invoker) InvokeGet(ctx context.Context, uri *url.URL) (string, error) {
	return i.do(ctx, MethodGet, uri, nil)
}

// InvokePost performs a POST with payload as the entity and returns the
// full response body
func (i *Invoker) InvokePost(ctx context.Context, uri *url.URL, payload string) (string, error) {
	return i.do(ctx, MethodPost, uri, &payload)
}

// Invoke dispatches req to InvokeGet or InvokePost
func (i *Invoker) Invoke(ctx context.Context, req InvocationRequest) (string, error) {
	if req.Method == MethodPost {
		if req.Body == nil {
			return "", taskerrors.MissingField("input")
		}
		return i.InvokePost(ctx, req.URL, *req.Body)
	}
	return i.InvokeGet(ctx, req.URL)
}

// Close releases idle pooled connections
func (i *Invoker) Close() {
	i.transport.CloseIdleConnections()
}

// do executes one call. The response body is read fully into memory and
// returned whatever the status code is.
func (i *Invoker) do(ctx context.Context, method Method, uri *url.URL, payload *string) (string, error) {
	if uri == nil {
		return "", taskerrors.NetworkFailure(string(method), "", fmt.Errorf("nil URI"))
	}
	target := uri.String()

	if err := i.slots.Acquire(ctx, 1); err != nil {
		return "", taskerrors.NetworkFailure(string(method), target, fmt.Errorf("waiting for a pooled connection: %w", err))
	}
	defer i.slots.Release(1)

	var body io.Reader
	if payload != nil {
		body = strings.NewReader(*payload)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), target, body)
	if err != nil {
		return "", taskerrors.NetworkFailure(string(method), target, fmt.Errorf("failed to create request: %w", err))
	}
	if payload != nil && i.config.ContentType != "" {
		req.Header.Set("Content-Type", i.config.ContentType)
	}
	if i.config.UserAgent != "" {
		req.Header.Set("User-Agent", i.config.UserAgent)
	}

	startTime := time.Now()
	i.logger.Debug("Invoking HTTP endpoint",
		zap.String("method", string(method)),
		zap.String("url", target))

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", taskerrors.NetworkFailure(string(method), target, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", taskerrors.NetworkFailure(string(method), target, fmt.Errorf("failed to read response: %w", err))
	}

	i.logger.Debug("HTTP invocation completed",
		zap.String("method", string(method)),
		zap.String("url", target),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(responseBody)),
		zap.Duration("duration", time.Since(startTime)))

	return string(responseBody), nil
}
