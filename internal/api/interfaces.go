package api

import (
	"context"

	"github.com/neexbeast/skycast/internal/storage"
	"github.com/neexbeast/skycast/internal/weather"
)

// WeatherAdapter defines the provider lookup needed by handlers.
type WeatherAdapter interface {
	FetchWeather(ctx context.Context, q weather.Query) (weather.Snapshot, error)
}

// FavoritesRepo defines the storage operations needed by handlers.
type FavoritesRepo interface {
	List(ctx context.Context, identityID string) ([]storage.Favorite, error)
	Insert(ctx context.Context, identityID, city string) (bool, error)
	Delete(ctx context.Context, identityID, city string) (bool, error)
}
