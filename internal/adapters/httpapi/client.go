package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/logging"
	"github.com/bnema/snippets-cli/internal/ports"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "snip"

	RefreshPath = "/auth/token/refresh/"

	maxResponseBytes = 8 << 20
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout bounds each dispatch, including reading the body.
	Timeout   time.Duration
	UserAgent string
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Logger    *log.Logger
}

// Client is the authenticated request pipeline. It attaches the stored
// access token, and on an expired-session response it waits for the shared
// refresh episode and replays the request once.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	limiter    *rate.Limiter
	tokens     ports.TokenStore
	refresher  *refresher
	logger     *log.Logger
}

var _ ports.Transport = (*Client)(nil)

func NewClient(tokens ports.TokenStore, opts Options) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("token store is required")
	}

	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	client := &Client{
		baseURL:    base,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		userAgent:  strings.TrimSpace(opts.UserAgent),
		tokens:     tokens,
		logger:     logging.Component(opts.Logger, "http"),
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.timeout <= 0 {
		client.timeout = DefaultTimeout
	}
	if client.userAgent == "" {
		client.userAgent = DefaultUserAgent
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	client.refresher = newRefresher(tokens, client.exchangeRefreshToken, logging.Component(opts.Logger, "refresh"))

	return client, nil
}

// Send dispatches req. Non-2xx responses come back as *domain.APIError and
// transport failures wrap domain.ErrNetwork.
func (c *Client) Send(ctx context.Context, req ports.Request) (*ports.Response, error) {
	resp, usedToken, err := c.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && intercepts(req) {
		c.logger.Debug("access token rejected, waiting for refresh", "method", req.Method, "path", req.Path)
		if err := c.refresher.await(ctx, usedToken); err != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
		}

		req.Retried = true
		return c.Send(ctx, req)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, domain.NewAPIError(req.Method, req.Path, resp.StatusCode, resp.Body)
	}

	return resp, nil
}

func (c *Client) AbortRefresh() {
	c.refresher.abort()
}

func (c *Client) Listen(listener ports.RefreshListener) func() {
	return c.refresher.listen(listener)
}

func intercepts(req ports.Request) bool {
	return !req.Public && !req.NoRefresh && !req.Retried
}

// dispatch performs one round trip and returns the raw response along with
// the access token it was sent with.
func (c *Client) dispatch(ctx context.Context, req ports.Request) (*ports.Response, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	endpoint, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, "", err
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s %s body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return nil, "", fmt.Errorf("create %s %s request: %w", method, req.Path, err)
	}

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	var usedToken string
	if !req.Public {
		if credential, ok := c.tokens.Get(ctx); ok {
			usedToken = credential.AccessToken
			httpReq.Header.Set("Authorization", "Bearer "+usedToken)
		} else {
			httpReq.Header.Del("Authorization")
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s %s: %w", domain.ErrNetwork, method, req.Path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s %s response: %w", domain.ErrNetwork, method, req.Path, err)
	}

	c.logger.Debug("request finished",
		"method", method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"request_id", requestID,
		"retried", req.Retried,
	)

	return &ports.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       payload,
	}, usedToken, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// exchangeRefreshToken calls the refresh endpoint directly; it never enters
// the interception path.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	req := ports.Request{
		Method: http.MethodPost,
		Path:   RefreshPath,
		Body:   refreshRequest{Refresh: refreshToken},
		Public: true,
	}

	resp, _, err := c.dispatch(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", domain.NewAPIError(req.Method, req.Path, resp.StatusCode, resp.Body)
	}

	var payload refreshResponse
	if err := resp.Decode(&payload); err != nil {
		return "", fmt.Errorf("refresh response: %w", err)
	}
	access := strings.TrimSpace(payload.Access)
	if access == "" {
		return "", errors.New("refresh response missing access token")
	}

	return access, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("request path is required")
	}

	ref, err := url.Parse(strings.TrimPrefix(trimmed, "/"))
	if err != nil {
		return "", fmt.Errorf("parse request path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("request path %q must be relative to the base URL", path)
	}

	endpoint := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		merged := endpoint.Query()
		for key, values := range query {
			for _, value := range values {
				merged.Add(key, value)
			}
		}
		endpoint.RawQuery = merged.Encode()
	}

	return endpoint.String(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("api base url is required")
	}

	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q must use http or https", raw)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("api base url %q has no host", raw)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	return base, nil
}
