// Package geo resolves the device's approximate position for
// "weather here" lookups.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/neexbeast/skycast/internal/weather"
)

const (
	ipAPIDefaultURL = "http://ip-api.com/json/"
	httpTimeout     = 10 * time.Second
)

// ErrPermissionDenied is returned when location access is switched off.
var ErrPermissionDenied = errors.New("location access denied")

// Options are hints passed to a Locator.
type Options struct {
	// HighAccuracy asks for the most precise fix the source can give.
	HighAccuracy bool
}

// Locator returns the current coordinates. Implementations must honour ctx.
type Locator interface {
	Locate(ctx context.Context, opts Options) (weather.Coordinates, error)
}

// Denied is a Locator for clients that have location turned off.
type Denied struct{}

// Locate always fails with ErrPermissionDenied.
func (Denied) Locate(context.Context, Options) (weather.Coordinates, error) {
	return weather.Coordinates{}, ErrPermissionDenied
}

// IPLocator approximates position from the public IP address using ip-api.com.
type IPLocator struct {
	baseURL string
	client  *http.Client
}

// NewIPLocator constructs an IPLocator against the production endpoint.
func NewIPLocator() *IPLocator {
	return NewIPLocatorWithURL(ipAPIDefaultURL)
}

// NewIPLocatorWithURL constructs an IPLocator pointing at a custom base URL (for tests).
func NewIPLocatorWithURL(baseURL string) *IPLocator {
	return &IPLocator{baseURL: baseURL, client: &http.Client{Timeout: httpTimeout}}
}

type ipAPIResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// Locate queries the lookup service. IP lookups have a single precision, so
// opts.HighAccuracy only selects which fields are requested.
func (l *IPLocator) Locate(ctx context.Context, opts Options) (weather.Coordinates, error) {
	fields := "status,message,lat,lon"
	if opts.HighAccuracy {
		fields += ",city,zip"
	}
	rawURL := l.baseURL + "?fields=" + fields

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("GET %s: %w", l.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return weather.Coordinates{}, fmt.Errorf("GET %s returned status %d", l.baseURL, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return weather.Coordinates{}, fmt.Errorf("decoding location response: %w", err)
	}
	if body.Status != "success" {
		return weather.Coordinates{}, fmt.Errorf("location lookup failed: %s", body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return weather.Coordinates{}, errors.New("location lookup returned no coordinates")
	}

	return weather.Coordinates{Lat: *body.Lat, Lon: *body.Lon}, nil
}
