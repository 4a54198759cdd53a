package kratos

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	kratos "github.com/ory/kratos-client-go"
	"golang.org/x/time/rate"
)

const defaultRequestTimeout = 15 * time.Second

type Config struct {
	PublicURL string
	// AdminURL enables identity lookups for accounts other than the current
	// one. Optional.
	AdminURL          string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Gateway bundles the generated public and admin API clients.
type Gateway struct {
	public *kratos.APIClient
	admin  *kratos.APIClient
}

func NewGateway(cfg Config) (*Gateway, error) {
	if err := validateURL(cfg.PublicURL); err != nil {
		return nil, fmt.Errorf("kratos public url: %w", err)
	}
	if cfg.AdminURL != "" {
		if err := validateURL(cfg.AdminURL); err != nil {
			return nil, fmt.Errorf("kratos admin url: %w", err)
		}
	}

	httpClient := limitedClient(cfg)
	gateway := &Gateway{public: newAPIClient(cfg.PublicURL, httpClient)}
	if cfg.AdminURL != "" {
		gateway.admin = newAPIClient(cfg.AdminURL, httpClient)
	}

	return gateway, nil
}

func newAPIClient(baseURL string, httpClient *http.Client) *kratos.APIClient {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: strings.TrimRight(baseURL, "/")},
	}
	configuration.HTTPClient = httpClient

	return kratos.NewAPIClient(configuration)
}

func limitedClient(cfg Config) *http.Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &limitedTransport{base: base, limiter: rate.NewLimiter(limit, burst)},
	}
}

// limitedTransport paces outgoing requests; the generated client has no hook
// of its own for that.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}

	return t.base.RoundTrip(req)
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("url host is required")
	}

	return nil
}
