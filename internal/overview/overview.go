// Package overview fetches current conditions for a list of cities in
// parallel, for the favorites listing.
package overview

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/skycast/internal/weather"
)

// maxInFlight caps concurrent lookups so a long favorites list does not
// trip the provider's rate limit.
const maxInFlight = 4

// Fetcher is the interface satisfied by remote.WeatherClient.
type Fetcher interface {
	FetchWeather(ctx context.Context, q weather.Query) (weather.Snapshot, error)
}

// Entry is one city's result. Exactly one of Snapshot and Err is set.
type Entry struct {
	City     string
	Snapshot *weather.Snapshot
	Err      string
}

// FetchAll looks up every city in parallel and returns entries in input
// order. Lookup failures are non-fatal: they are recorded on the entry and
// logged. Only a panic in a lookup fails the whole call.
func FetchAll(ctx context.Context, f Fetcher, cities []string, log *slog.Logger) ([]Entry, error) {
	entries := make([]Entry, len(cities))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)

	for i, city := range cities {
		entries[i].City = city
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("weather fetch panicked", "city", city, "recover", r)
					err = fmt.Errorf("weather fetch for %s panicked: %v", city, r)
				}
			}()
			snap, fetchErr := f.FetchWeather(gCtx, weather.CityQuery(city))
			if fetchErr != nil {
				log.Warn("weather fetch failed", "city", city, "err", fetchErr)
				entries[i].Err = weather.Message(fetchErr)
				return nil
			}
			entries[i].Snapshot = &snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching favorites overview: %w", err)
	}
	return entries, nil
}
