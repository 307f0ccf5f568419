// Package favorites keeps the signed-in user's favorite cities in memory,
// mirrored to the favorites API.
package favorites

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/neexbeast/skycast/internal/identity"
	"github.com/neexbeast/skycast/internal/weather"
)

// MsgLoginRequired is the user-facing text for ErrLoginRequired.
const MsgLoginRequired = "Please log in to save favorites"

// ErrLoginRequired is returned by Add when no identity is present.
var ErrLoginRequired = errors.New("favorites: login required")

// Remote is the durable favorites store, scoped by identity id.
type Remote interface {
	List(ctx context.Context, identityID string) ([]string, error)
	Insert(ctx context.Context, identityID, city string) error
	Delete(ctx context.Context, identityID, city string) error
}

// Store is the in-memory favorites set for the current identity. Entries are
// unique and keep insertion order.
type Store struct {
	remote Remote
	log    *slog.Logger

	mu       sync.Mutex
	identity string
	present  bool
	// gen changes on every identity change; remote results carrying an
	// older generation are dropped.
	gen    uint64
	cities []string
}

// New returns an empty Store with no identity.
func New(remote Remote, log *slog.Logger) *Store {
	return &Store{remote: remote, log: log}
}

// OnIdentityChange has the identity.Listener signature so it can be passed
// to identity.Context.Subscribe.
func (s *Store) OnIdentityChange(ctx context.Context, id identity.Identity, present bool) {
	if present {
		s.Load(ctx, id)
		return
	}
	s.mu.Lock()
	s.gen++
	s.identity, s.present = "", false
	s.cities = nil
	s.mu.Unlock()
}

// Load makes id current and replaces the set with its remote list. A remote
// failure is logged and leaves the set empty.
func (s *Store) Load(ctx context.Context, id identity.Identity) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.identity, s.present = id.ID, true
	s.cities = nil
	s.mu.Unlock()

	cities, err := s.remote.List(ctx, id.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug("discarding favorites for previous identity", "identity", id.ID)
		return
	}
	if err != nil {
		s.log.Error("loading favorites failed", "identity", id.ID, "err", err)
		return
	}
	s.cities = dedupe(cities)
}

// Add saves city. It is a no-op when city is already present and fails with
// ErrLoginRequired without an identity. The set only changes after the
// remote insert succeeds.
func (s *Store) Add(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return weather.NewError(weather.KindInvalidRequest, nil)
	}

	s.mu.Lock()
	if !s.present {
		s.mu.Unlock()
		return ErrLoginRequired
	}
	if slices.Contains(s.cities, city) {
		s.mu.Unlock()
		return nil
	}
	id, gen := s.identity, s.gen
	s.mu.Unlock()

	if err := s.remote.Insert(ctx, id, city); err != nil {
		s.log.Error("saving favorite failed", "identity", id, "city", city, "err", err)
		return weather.NewError(weather.KindPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen && !slices.Contains(s.cities, city) {
		s.cities = append(s.cities, city)
	}
	return nil
}

// Remove deletes city. Absent cities and a missing identity are no-ops with
// no remote call. Remote failures are logged and leave the set unchanged.
func (s *Store) Remove(ctx context.Context, city string) {
	city = strings.TrimSpace(city)

	s.mu.Lock()
	if !s.present || !slices.Contains(s.cities, city) {
		s.mu.Unlock()
		return
	}
	id, gen := s.identity, s.gen
	s.mu.Unlock()

	if err := s.remote.Delete(ctx, id, city); err != nil {
		s.log.Error("removing favorite failed", "identity", id, "city", city, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.cities = slices.DeleteFunc(s.cities, func(c string) bool { return c == city })
	}
}

// List returns a copy of the favorites in insertion order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cities)
}

// Contains reports whether city is a favorite.
func (s *Store) Contains(city string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.cities, strings.TrimSpace(city))
}

func dedupe(cities []string) []string {
	out := make([]string, 0, len(cities))
	for _, c := range cities {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
