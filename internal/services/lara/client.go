package lara

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultServerURL is the public LARA MCP endpoint.
	DefaultServerURL = "https://mcp.laratranslate.com/v1"

	protocolVersion       = "2024-11-05"
	clientName            = "subtrans"
	clientVersion         = "1.0.0"
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryMaxDelay  = 5 * time.Second
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryAttempts  = 3
	negotiationProbeText  = "Hello"
)

var (
	// ErrMissingCredentials reports an absent access key id or secret.
	ErrMissingCredentials = errors.New("lara access credentials not configured")
	// ErrUnexpectedResult reports a response the client could not interpret.
	ErrUnexpectedResult = errors.New("unexpected lara result")
)

// Config captures the runtime settings required to talk to the server.
type Config struct {
	ServerURL       string
	AccessKeyID     string
	AccessKeySecret string
	TimeoutSeconds  int
}

// ConfigError reports unusable client settings. It is raised once, at
// construction, so callers can abort a whole run before touching any item.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lara config: %s: %v", e.Reason, e.Err)
	}
	return "lara config: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for result records.
func (e *ConfigError) ErrorKind() string { return "configuration" }

// RPCError is a JSON-RPC error object returned by the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("lara rpc error %d: %s", e.Code, strings.TrimSpace(e.Message))
}

// ErrorKind classifies the error for result records.
func (e *RPCError) ErrorKind() string { return "collaborator" }

// Shape describes one accepted tools/call layout for single translations.
type Shape struct {
	Tool      string
	SourceKey string
	TargetKey string
}

// knownShapes lists the layouts tried by Negotiate, in order.
var knownShapes = []Shape{
	{Tool: "translate", SourceKey: "source", TargetKey: "target"},
	{Tool: "translate", SourceKey: "from", TargetKey: "to"},
	{Tool: "translate_text", SourceKey: "source", TargetKey: "target"},
}

// Client talks to the LARA MCP server.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)

	nextID atomic.Int64

	mu    sync.RWMutex
	shape Shape
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithShape pins the request shape, skipping negotiation.
func WithShape(shape Shape) Option {
	return func(c *Client) {
		if shape.Tool != "" {
			c.shape = shape
		}
	}
}

// NewClient constructs a client. Missing credentials or a malformed server
// URL yield a *ConfigError.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = Config{
		ServerURL:       strings.TrimSpace(cfg.ServerURL),
		AccessKeyID:     strings.TrimSpace(cfg.AccessKeyID),
		AccessKeySecret: strings.TrimSpace(cfg.AccessKeySecret),
		TimeoutSeconds:  cfg.TimeoutSeconds,
	}
	if cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, &ConfigError{
			Reason: "set LARA_ACCESS_KEY_ID and LARA_ACCESS_KEY_SECRET or translation.access_key_id/secret",
			Err:    ErrMissingCredentials,
		}
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if parsed, err := url.Parse(cfg.ServerURL); err != nil || parsed.Host == "" {
		if err == nil {
			err = errors.New("missing host")
		}
		return nil, &ConfigError{Reason: "invalid server url " + strconv.Quote(cfg.ServerURL), Err: err}
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		shape:            knownShapes[0],
	}
	client.nextID.Store(time.Now().UnixMilli())
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client, nil
}

// Shape returns the request shape currently in use.
func (c *Client) Shape() Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shape
}

// Translate translates one text. Blank input is returned as is.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	return c.translateWithShape(ctx, c.Shape(), text, source, target)
}

// TranslateBatch translates texts with one translate_batch call. The result
// has one element per input or an error is returned.
func (c *Client) TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	params := map[string]any{
		"texts":           texts,
		"source_language": source,
		"target_language": target,
	}
	raw, err := c.callWithRetry(ctx, "translate_batch", params, "lara translate batch")
	if err != nil {
		return nil, err
	}
	results, err := parseBatchResult(raw)
	if err != nil {
		return nil, fmt.Errorf("lara translate batch: %w", err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("lara translate batch: %w: got %d results for %d texts", ErrUnexpectedResult, len(results), len(texts))
	}
	return results, nil
}

// Negotiate probes the known request shapes and keeps the first that returns
// a usable translation. It returns the chosen shape.
func (c *Client) Negotiate(ctx context.Context, source, target string) (Shape, error) {
	var lastErr error
	for _, shape := range knownShapes {
		if _, err := c.translateWithShape(ctx, shape, negotiationProbeText, source, target); err != nil {
			if ctx.Err() != nil {
				return Shape{}, ctx.Err()
			}
			lastErr = err
			continue
		}
		c.mu.Lock()
		c.shape = shape
		c.mu.Unlock()
		return shape, nil
	}
	return Shape{}, fmt.Errorf("lara negotiate: no request shape accepted: %w", lastErr)
}

// Ping sends an initialize request.
func (c *Client) Ping(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]string{
			"name":    clientName,
			"version": clientVersion,
		},
	}
	_, err := c.callWithRetry(ctx, "initialize", params, "lara ping")
	return err
}

// Reachable reports whether Ping succeeds.
func (c *Client) Reachable(ctx context.Context) bool {
	return c.Ping(ctx) == nil
}

func (c *Client) translateWithShape(ctx context.Context, shape Shape, text, source, target string) (string, error) {
	params := map[string]any{
		"name": shape.Tool,
		"arguments": map[string]any{
			"text":          []textBlock{{Text: text, Translatable: true}},
			shape.SourceKey: source,
			shape.TargetKey: target,
		},
	}
	raw, err := c.callWithRetry(ctx, "tools/call", params, "lara translate")
	if err != nil {
		return "", err
	}
	translated, err := parseTranslateResult(raw)
	if err != nil {
		return "", fmt.Errorf("lara translate: %w", err)
	}
	return translated, nil
}

type textBlock struct {
	Text         string `json:"text"`
	Translatable bool   `json:"translatable"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("lara request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// ErrorKind classifies the error for result records.
func (e *httpStatusError) ErrorKind() string { return "collaborator" }

func (c *Client) callWithRetry(ctx context.Context, method string, params any, op string) (json.RawMessage, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.sendOnce(ctx, method, params)
		if err == nil {
			return result, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			if attempt == 1 {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			return nil, fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return nil, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("lara request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("lara request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("x-lara-access-key-id", c.cfg.AccessKeyID)
	req.Header.Set("x-lara-access-key-secret", c.cfg.AccessKeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lara request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lara request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var decoded rpcResponse
	if err := json.Unmarshal(eventPayload(body), &decoded); err != nil {
		return nil, fmt.Errorf("lara request: decode response: %w (payload snippet: %s)", err, summarizePayloadSnippet(string(body)))
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	return decoded.Result, nil
}

// eventPayload returns the last "data:" line of a server-sent event body, or
// the body itself when it carries no event lines.
func eventPayload(body []byte) []byte {
	var last []byte
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			last = bytes.TrimSpace(rest)
		}
	}
	if last != nil {
		return last
	}
	return bytes.TrimSpace(body)
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c.retryBaseDelay >= 0 {
		base = c.retryBaseDelay
	}
	if c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if base <= 0 {
		return 0
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < max(attempt, 1); i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	return min(delay, maxDelay)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
