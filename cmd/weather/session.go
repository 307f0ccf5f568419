package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/neexbeast/skycast/internal/cache"
	"github.com/neexbeast/skycast/internal/weather"
)

var errNoSession = errors.New("session cache unavailable")

// noSession stands in for the session cache when Redis cannot be reached.
// Reads come back empty and writes of the last search are dropped.
type noSession struct{}

func (noSession) Load(context.Context) (weather.Session, error)        { return weather.Session{}, nil }
func (noSession) Save(context.Context, string, weather.Snapshot) error { return nil }
func (noSession) Clear(context.Context) error                          { return errNoSession }
func (noSession) LoadIdentity(context.Context) (string, error)         { return "", nil }
func (noSession) SaveIdentity(context.Context, string) error           { return errNoSession }

// openSessions connects the session cache. A Redis failure is logged and the
// client carries on without persistence.
func openSessions(ctx context.Context, redisURL, namespace string, log *slog.Logger) (sessionStore, func()) {
	client, err := cache.Connect(ctx, redisURL)
	if err != nil {
		log.Warn("session cache unavailable, continuing without it", "err", err)
		return noSession{}, func() {}
	}
	return cache.NewSessionCache(client, namespace), func() { _ = client.Close() }
}
