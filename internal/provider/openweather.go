package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/neexbeast/skycast/internal/weather"
)

const (
	owmDefaultURL = "https://api.openweathermap.org/data/2.5/weather"

	httpTimeout        = 10 * time.Second
	defaultMaxTries    = 3
	defaultBackoff     = 500 * time.Millisecond
	defaultMaxInterval = 5 * time.Second

	// OpenWeatherMap's free tier allows 60 calls a minute.
	defaultRPS   = 1.0
	defaultBurst = 10

	maxBodyBytes = 1 << 20
)

// StatusError is a non-success HTTP status returned by the upstream provider.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openweathermap returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("openweathermap returned status %d", e.Status)
}

// Observation is the subset of the OpenWeatherMap current-weather payload the
// adapter reads. Pointer fields distinguish "absent" from zero.
type Observation struct {
	Cod  json.RawMessage `json:"cod"`
	Name *string         `json:"name"`
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind *struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility *float64 `json:"visibility"`
	Sys        struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// notFound reports the provider's in-body "404" code.
func (o *Observation) notFound() bool {
	return strings.Trim(string(o.Cod), `"`) == "404"
}

// OpenWeatherClient fetches current conditions from OpenWeatherMap. Requests
// are paced by a token bucket, retried with exponential backoff on transient
// failures, and short-circuited by a breaker while the provider is down.
type OpenWeatherClient struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	maxTries    uint
	backoff     time.Duration
	maxInterval time.Duration
}

// Option configures an OpenWeatherClient.
type Option func(*OpenWeatherClient)

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *OpenWeatherClient) { c.baseURL = baseURL }
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenWeatherClient) {
		if d > 0 {
			c.client = &http.Client{Timeout: d}
		}
	}
}

// WithRetry sets the attempt budget and the initial backoff interval.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(c *OpenWeatherClient) {
		if maxTries > 0 {
			c.maxTries = maxTries
		}
		if initial > 0 {
			c.backoff = initial
			if c.maxInterval < initial {
				c.maxInterval = initial
			}
		}
	}
}

// WithRateLimit sets the sustained upstream request rate. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *OpenWeatherClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewOpenWeatherClient constructs a client for the given API key. An empty key
// is allowed; the adapter reports it as a configuration error per request.
func NewOpenWeatherClient(apiKey string, opts ...Option) *OpenWeatherClient {
	c := &OpenWeatherClient{
		apiKey:      apiKey,
		baseURL:     owmDefaultURL,
		client:      &http.Client{Timeout: httpTimeout},
		limiter:     rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		maxTries:    defaultMaxTries,
		backoff:     defaultBackoff,
		maxInterval: defaultMaxInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})
	return c
}

// NewOpenWeatherClientWithURL constructs a client pointing at a custom base URL
// with short backoff and no pacing (for tests).
func NewOpenWeatherClientWithURL(baseURL, apiKey string) *OpenWeatherClient {
	return NewOpenWeatherClient(apiKey,
		WithBaseURL(baseURL),
		WithRetry(defaultMaxTries, 5*time.Millisecond),
		WithRateLimit(0, 0),
	)
}

// Configured reports whether an API key is present.
func (c *OpenWeatherClient) Configured() bool {
	return c.apiKey != ""
}

// endpoint builds the lookup URL. City and coordinate lookups differ only here.
func (c *OpenWeatherClient) endpoint(q weather.Query) string {
	values := url.Values{}
	if q.Coordinates != nil {
		values.Set("lat", strconv.FormatFloat(q.Coordinates.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(q.Coordinates.Lon, 'f', -1, 64))
	} else {
		values.Set("q", strings.TrimSpace(q.City))
	}
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	return c.baseURL + "?" + values.Encode()
}

type upstreamResponse struct {
	status int
	body   []byte
}

// Current fetches the current-weather payload for q. Non-success statuses are
// returned as *StatusError.
func (c *OpenWeatherClient) Current(ctx context.Context, q weather.Query) (*Observation, error) {
	endpoint := c.endpoint(q)

	operation := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("waiting for upstream quota: %w", err))
		}

		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.get(ctx, endpoint)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(fmt.Errorf("openweathermap circuit open: %w", err))
			}
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		resp := res.(*upstreamResponse)
		if resp.status != http.StatusOK {
			return nil, backoff.Permanent(&StatusError{Status: resp.status, Message: upstreamMessage(resp.body)})
		}
		return resp.body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("openweathermap fetch: %w", err)
	}

	var obs Observation
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if obs.notFound() {
		return nil, &StatusError{Status: http.StatusNotFound, Message: "city not found"}
	}

	return &obs, nil
}

// get performs one GET. Network errors, 429 and 5xx are failures (retried and
// counted by the breaker); every other status is returned as a response.
func (c *OpenWeatherClient) get(ctx context.Context, rawURL string) (*upstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET openweathermap: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, &StatusError{Status: resp.StatusCode, Message: upstreamMessage(body)}
	}

	return &upstreamResponse{status: resp.StatusCode, body: body}, nil
}

func (c *OpenWeatherClient) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoff
	b.MaxInterval = c.maxInterval
	return b
}

// upstreamMessage extracts OpenWeatherMap's {"message": "..."} error text.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
