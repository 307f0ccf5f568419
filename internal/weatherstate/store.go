// Package weatherstate holds the client-side weather state machine: the
// current snapshot, the last searched query and the idle/loading/ready/failed
// status, seeded from and persisted to the session cache.
package weatherstate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neexbeast/skycast/internal/geo"
	"github.com/neexbeast/skycast/internal/weather"
)

// DefaultLocateTimeout bounds a current-location lookup.
const DefaultLocateTimeout = 10 * time.Second

// Status is the store's lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// State is a point-in-time copy of the store.
type State struct {
	Status       Status
	Current      *weather.Snapshot
	LastSearched string
	Err          string
	// Restored is true while Current came from the session cache rather
	// than a search in this process.
	Restored bool
}

// Fetcher performs a weather lookup.
type Fetcher interface {
	FetchWeather(ctx context.Context, q weather.Query) (weather.Snapshot, error)
}

// SessionCache persists the last query and snapshot between runs.
type SessionCache interface {
	Load(ctx context.Context) (weather.Session, error)
	Save(ctx context.Context, query string, snap weather.Snapshot) error
}

// Option configures a Store.
type Option func(*Store)

// WithStaleResponseGuard drops responses to searches that have been
// superseded by a newer one. Without it the last response to arrive wins.
func WithStaleResponseGuard() Option {
	return func(s *Store) { s.guard = true }
}

// WithLocateTimeout overrides DefaultLocateTimeout.
func WithLocateTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.locateTimeout = d
		}
	}
}

// Store is safe for concurrent use. Overlapping searches are not serialized.
type Store struct {
	fetcher       Fetcher
	locator       geo.Locator
	cache         SessionCache
	log           *slog.Logger
	guard         bool
	locateTimeout time.Duration

	mu      sync.Mutex
	seq     uint64
	applied uint64
	state   State

	// saveMu orders cache writes by the order results were applied.
	saveMu sync.Mutex
	saved  uint64
}

// New builds a Store and seeds it from cache. A nil locator means the client
// cannot determine its location; a nil cache disables persistence. Cache read
// failures are logged and the store starts empty.
func New(ctx context.Context, fetcher Fetcher, locator geo.Locator, cache SessionCache, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		fetcher:       fetcher,
		locator:       locator,
		cache:         cache,
		log:           log,
		locateTimeout: DefaultLocateTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cache == nil {
		return s
	}
	sess, err := cache.Load(ctx)
	if err != nil {
		log.Warn("restoring session failed", "err", err)
		return s
	}
	s.state.LastSearched = sess.LastSearchedQuery
	if sess.LastSnapshot != nil {
		snap := *sess.LastSnapshot
		s.state.Current = &snap
		s.state.Restored = true
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Current != nil {
		snap := *st.Current
		st.Current = &snap
	}
	return st
}

// SearchByCity looks up name. The returned error is also reflected in State.
func (s *Store) SearchByCity(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	seq := s.begin()
	return s.fetch(ctx, seq, weather.CityQuery(name), name)
}

// SearchByCurrentLocation resolves the device position and looks it up.
// The last-searched value becomes the resolved location name.
func (s *Store) SearchByCurrentLocation(ctx context.Context) error {
	seq := s.begin()
	coords, err := s.locate(ctx)
	if err != nil {
		s.fail(seq, err)
		return err
	}
	return s.fetch(ctx, seq, weather.CoordinatesQuery(coords.Lat, coords.Lon), "")
}

// ClearError moves failed back to idle. The snapshot is kept.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == StatusFailed {
		s.state.Status = StatusIdle
		s.state.Err = ""
	}
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state.Status = StatusLoading
	s.state.Err = ""
	return s.seq
}

// current reports whether the search numbered seq may still change state.
// Callers hold s.mu.
func (s *Store) current(seq uint64) bool {
	return !s.guard || seq == s.seq
}

func (s *Store) locate(ctx context.Context) (weather.Coordinates, error) {
	if s.locator == nil {
		return weather.Coordinates{}, &weather.Error{
			Kind:    weather.KindLocationUnavailable,
			Message: weather.MsgLocationUnsupported,
		}
	}

	lctx, cancel := context.WithTimeout(ctx, s.locateTimeout)
	defer cancel()

	type result struct {
		coords weather.Coordinates
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := s.locator.Locate(lctx, geo.Options{HighAccuracy: true})
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return weather.Coordinates{}, weather.NewError(weather.KindLocationUnavailable, r.err)
		}
		return r.coords, nil
	case <-lctx.Done():
		return weather.Coordinates{}, weather.NewError(weather.KindLocationUnavailable, lctx.Err())
	}
}

func (s *Store) fetch(ctx context.Context, seq uint64, q weather.Query, label string) error {
	snap, err := s.fetcher.FetchWeather(ctx, q)
	if err != nil {
		s.fail(seq, err)
		return err
	}

	if label == "" {
		label = snap.Location
	}
	if label == "" && q.Coordinates != nil {
		label = q.Coordinates.String()
	}

	s.mu.Lock()
	if !s.current(seq) {
		s.mu.Unlock()
		s.log.Debug("dropping stale weather response", "location", snap.Location)
		return nil
	}
	stored := snap
	s.state = State{Status: StatusReady, Current: &stored, LastSearched: label}
	s.applied++
	applied := s.applied
	s.mu.Unlock()

	s.save(ctx, applied, label, snap)
	return nil
}

// save persists the result numbered applied unless a later one was already
// written, so the cache never holds an older snapshot than the one shown.
func (s *Store) save(ctx context.Context, applied uint64, label string, snap weather.Snapshot) {
	if s.cache == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if applied < s.saved {
		s.log.Debug("skipping superseded session save", "location", snap.Location)
		return
	}
	s.saved = applied
	if err := s.cache.Save(ctx, label, snap); err != nil {
		s.log.Warn("saving session failed", "err", err)
	}
}

func (s *Store) fail(seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(seq) {
		s.log.Debug("dropping stale weather failure", "err", err)
		return
	}
	s.state.Status = StatusFailed
	s.state.Err = weather.Message(err)
	s.log.Info("weather search failed", "kind", weather.KindOf(err).String(), "err", err)
}
