package gotrue

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

	"golang.org/x/time/rate"
)

const (
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 15 * time.Second
	defaultProfilesTable  = "profiles"
	authPathPrefix        = "/auth/v1/"
	restPathPrefix        = "/rest/v1/"
)

type Config struct {
	BaseURL           string
	AnonKey           string
	ProfilesTable     string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client speaks the GoTrue auth API and the PostgREST data API that sit behind
// one project URL.
type Client struct {
	baseURL        *url.URL
	anonKey        string
	profilesTable  string
	requestTimeout time.Duration
	httpClient     *http.Client
	limiter        *rate.Limiter
}

// apiError is a non-2xx answer from either API.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("status %d: %s", e.Status, e.Code)
	case e.Message != "":
		return fmt.Sprintf("status %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("status %d", e.Status)
	}
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func NewClient(cfg Config) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	table := strings.TrimSpace(cfg.ProfilesTable)
	if table == "" {
		table = defaultProfilesTable
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	return &Client{
		baseURL:        base,
		anonKey:        cfg.AnonKey,
		profilesTable:  table,
		requestTimeout: timeout,
		httpClient:     httpClient,
		limiter:        rate.NewLimiter(limit, burst),
	}, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	bearer string
	body   any
	header http.Header
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for request slot: %w", err)
	}

	endpoint := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, req.method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for key, values := range req.header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		httpReq.Header.Set("apikey", c.anonKey)
	}
	bearer := req.bearer
	if bearer == "" {
		bearer = c.anonKey
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &apiError{Status: resp.StatusCode}

	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return apiErr
	}

	apiErr.Code = firstNonEmpty(payload.ErrorCode, payload.Error)
	apiErr.Message = firstNonEmpty(payload.ErrorDescription, payload.Msg, payload.Message)

	return apiErr
}

func asAPIError(err error) (*apiError, bool) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("api base url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}

	return parsed, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
