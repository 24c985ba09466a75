package todoist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/BuzzLyutic/todo-display/internal/model"
)

const (
	// DefaultBaseURL is the Todoist API host.
	DefaultBaseURL = "https://api.todoist.com"

	tasksEndpoint       = "/rest/v1/tasks"
	userAgentProduct    = "todo-display"
	userAgentVersion    = "1.0"
	defaultHTTPTimeout  = 30 * time.Second
	maxResponseBodySize = 4 << 20
)

// Client reads active tasks from the Todoist REST API.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	logger    *zap.Logger
}

// ClientOption mutates the client during construction.
type ClientOption func(*Client)

// NewClient builds a client authenticated with token as a bearer credential.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	c := &Client{
		baseURL:   DefaultBaseURL,
		http:      &http.Client{Timeout: defaultHTTPTimeout},
		userAgent: buildDefaultUserAgent(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	c.baseURL = sanitizeBaseURL(c.baseURL)

	// The oauth2 transport sets "Authorization: Bearer <token>" on every request.
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	authed := *c.http
	authed.Transport = &oauth2.Transport{Source: src, Base: c.http.Transport}
	c.http = &authed
	return c, nil
}

// WithBaseURL overrides the API host (tests, proxies). No trailing slash required.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient installs a custom http.Client. Its transport is wrapped with
// the bearer token.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func sanitizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// Tasks returns every active task in the order the API lists them.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	url := c.baseURL + tasksEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("todoist: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrFetch, err)
	}
	if len(raw) > maxResponseBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, maxResponseBodySize)
	}
	c.logger.Debug("todoist response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, buildAPIError(resp.StatusCode, raw)
	}
	return decodeTasks(raw)
}

func buildDefaultUserAgent() string {
	goVer := strings.TrimPrefix(runtime.Version(), "go")
	return fmt.Sprintf("%s/%s (Go%s; %s/%s)",
		userAgentProduct, userAgentVersion, goVer, runtime.GOOS, runtime.GOARCH)
}
