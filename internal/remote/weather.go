package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/neexbeast/skycast/internal/weather"
)

// WeatherClient calls POST /api/v1/weather and maps failures back into the
// weather error kinds, keeping the server's message verbatim.
type WeatherClient struct {
	conn conn
}

// NewWeatherClient constructs a WeatherClient for the server at baseURL.
func NewWeatherClient(baseURL, token string) *WeatherClient {
	return &WeatherClient{conn: newConn(baseURL, token)}
}

// FetchWeather looks up the current conditions for q.
func (c *WeatherClient) FetchWeather(ctx context.Context, q weather.Query) (weather.Snapshot, error) {
	var snap weather.Snapshot
	err := c.conn.do(ctx, http.MethodPost, "/api/v1/weather", q, nil, &snap)
	if err == nil {
		return snap, nil
	}

	var se *StatusError
	if !errors.As(err, &se) {
		if errors.Is(err, errMalformedResponse) {
			return weather.Snapshot{}, weather.NewError(weather.KindInternal, err)
		}
		return weather.Snapshot{}, weather.NewError(weather.KindUpstreamUnavailable, err)
	}

	werr := weather.NewError(kindForStatus(se), err)
	if se.Message != "" {
		werr.Message = se.Message
	}
	return weather.Snapshot{}, werr
}

// kindForStatus recovers the error kind from the status and, for 500s, the
// server's fixed messages.
func kindForStatus(se *StatusError) weather.Kind {
	switch se.Status {
	case http.StatusBadRequest:
		return weather.KindInvalidRequest
	case http.StatusNotFound:
		return weather.KindNotFound
	}
	switch se.Message {
	case weather.MsgConfiguration:
		return weather.KindConfiguration
	case weather.MsgInternal:
		return weather.KindInternal
	default:
		return weather.KindUpstreamUnavailable
	}
}
