package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/neexbeast/skycast/internal/weather"
)

// upstream is the provider call the adapter depends on; satisfied by OpenWeatherClient.
type upstream interface {
	Configured() bool
	Current(ctx context.Context, q weather.Query) (*Observation, error)
}

// Adapter resolves a query against the upstream provider and returns a
// normalized Snapshot or a *weather.Error. It holds no per-request state.
type Adapter struct {
	upstream upstream
	log      *slog.Logger
}

// NewAdapter constructs an Adapter over the given OpenWeatherMap client.
func NewAdapter(client *OpenWeatherClient, log *slog.Logger) *Adapter {
	return &Adapter{upstream: client, log: log}
}

// FetchWeather validates q, calls the provider and normalizes the result.
func (a *Adapter) FetchWeather(ctx context.Context, q weather.Query) (weather.Snapshot, error) {
	if q.Empty() {
		return weather.Snapshot{}, weather.NewError(weather.KindInvalidRequest, nil)
	}

	if !a.upstream.Configured() {
		a.log.Error("openweather api key not configured")
		return weather.Snapshot{}, weather.NewError(weather.KindConfiguration, nil)
	}

	kind := q.Kind()
	if q.Coordinates != nil {
		a.log.Info("fetching weather", "kind", kind, "lat", q.Coordinates.Lat, "lon", q.Coordinates.Lon)
	} else {
		a.log.Info("fetching weather", "kind", kind, "city", q.City)
	}

	obs, err := a.upstream.Current(ctx, q)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			a.log.Warn("location not found upstream", "kind", kind, "err", err)
			return weather.Snapshot{}, weather.NewError(weather.KindNotFound, err)
		}
		if errors.Is(err, ErrMalformedPayload) {
			a.log.Error("decoding provider payload", "kind", kind, "err", err)
			return weather.Snapshot{}, weather.NewError(weather.KindInternal, err)
		}
		a.log.Error("openweathermap request failed", "kind", kind, "err", err)
		return weather.Snapshot{}, weather.NewError(weather.KindUpstreamUnavailable, err)
	}

	snap, err := Normalize(obs)
	if err != nil {
		a.log.Error("normalizing provider payload", "kind", kind, "err", err)
		return weather.Snapshot{}, weather.NewError(weather.KindInternal, err)
	}

	a.log.Info("weather data received", "kind", kind, "location", snap.Location)
	return snap, nil
}
