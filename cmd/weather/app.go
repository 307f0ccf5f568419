package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/neexbeast/skycast/internal/favorites"
	"github.com/neexbeast/skycast/internal/geo"
	"github.com/neexbeast/skycast/internal/identity"
	"github.com/neexbeast/skycast/internal/overview"
	"github.com/neexbeast/skycast/internal/weather"
	"github.com/neexbeast/skycast/internal/weatherstate"
)

const msgProfileLogin = "Please log in to view your profile"

// fetcher is satisfied by remote.WeatherClient.
type fetcher interface {
	FetchWeather(ctx context.Context, q weather.Query) (weather.Snapshot, error)
}

// sessionStore is satisfied by cache.SessionCache.
type sessionStore interface {
	weatherstate.SessionCache
	Clear(ctx context.Context) error
	LoadIdentity(ctx context.Context) (string, error)
	SaveIdentity(ctx context.Context, id string) error
}

type deps struct {
	out       io.Writer
	log       *slog.Logger
	fetcher   fetcher
	favorites favorites.Remote
	sessions  sessionStore
	locator   geo.Locator
	userID    string
}

// app composes the stores for one CLI invocation.
type app struct {
	out       io.Writer
	log       *slog.Logger
	fetcher   fetcher
	sessions  sessionStore
	weather   *weatherstate.Store
	favorites *favorites.Store
	ids       *identity.Context
}

func newApp(ctx context.Context, d deps) *app {
	a := &app{
		out:       d.out,
		log:       d.log,
		fetcher:   d.fetcher,
		sessions:  d.sessions,
		weather:   weatherstate.New(ctx, d.fetcher, d.locator, d.sessions, d.log),
		favorites: favorites.New(d.favorites, d.log),
		ids:       identity.New(),
	}
	a.ids.Subscribe(a.favorites.OnIdentityChange)

	userID := d.userID
	if userID == "" {
		var err error
		if userID, err = d.sessions.LoadIdentity(ctx); err != nil {
			d.log.Warn("restoring identity failed", "err", err)
		}
	}
	if userID != "" {
		a.ids.Set(ctx, identity.Identity{ID: userID})
	}
	return a
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "search":
		city := strings.Join(args[1:], " ")
		return a.search(func() error { return a.weather.SearchByCity(ctx, city) })
	case "here":
		return a.search(func() error { return a.weather.SearchByCurrentLocation(ctx) })
	case "show":
		a.printState()
		return nil
	case "favorites":
		return a.favoritesCmd(ctx, args[1:])
	case "profile":
		return a.profile()
	case "login":
		return a.login(ctx, strings.TrimSpace(strings.Join(args[1:], " ")))
	case "logout":
		return a.logout(ctx)
	case "forget":
		if err := a.sessions.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Cleared the last search")
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// search runs one lookup. On failure the error is reported, the store goes
// back to idle and the previous result, if any, is shown below it.
func (a *app) search(do func() error) error {
	err := do()
	if err == nil {
		a.printState()
		return nil
	}

	msg := a.weather.State().Err
	a.weather.ClearError()
	if st := a.weather.State(); st.Current != nil {
		fmt.Fprintln(a.out, "Previous result:")
		printSnapshot(a.out, st.Current)
	}
	return errors.New(msg)
}

func (a *app) favoritesCmd(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	city := strings.Join(args[min(1, len(args)):], " ")

	switch sub {
	case "list":
		return a.listFavorites(ctx)
	case "add":
		if city == "" {
			st := a.weather.State()
			if st.Current == nil {
				return errors.New("nothing to save: search for a city first")
			}
			city = st.Current.Location
		}
		if err := a.favorites.Add(ctx, city); err != nil {
			return errors.New(messageOf(err))
		}
		fmt.Fprintf(a.out, "Saved %s\n", city)
		return nil
	case "remove":
		if city == "" {
			return errors.New("usage: weather favorites remove <city>")
		}
		if !a.favorites.Contains(city) {
			fmt.Fprintf(a.out, "%s is not a favorite\n", city)
			return nil
		}
		a.favorites.Remove(ctx, city)
		if a.favorites.Contains(city) {
			return fmt.Errorf("could not remove %s, try again", city)
		}
		fmt.Fprintf(a.out, "Removed %s\n", city)
		return nil
	case "open":
		if !a.favorites.Contains(city) {
			return fmt.Errorf("%s is not a favorite", city)
		}
		return a.search(func() error { return a.weather.SearchByCity(ctx, city) })
	default:
		return fmt.Errorf("unknown favorites command %q", sub)
	}
}

func (a *app) listFavorites(ctx context.Context) error {
	if _, ok := a.ids.Current(); !ok {
		return errors.New(messageOf(favorites.ErrLoginRequired))
	}
	cities := a.favorites.List()
	if len(cities) == 0 {
		fmt.Fprintln(a.out, "No favorites yet. Save one with: weather favorites add <city>")
		return nil
	}

	entries, err := overview.FetchAll(ctx, a.fetcher, cities, a.log)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Snapshot == nil {
			fmt.Fprintf(a.out, "%-20s %s\n", e.City, e.Err)
			continue
		}
		fmt.Fprintf(a.out, "%-20s %4d°C  %s\n", e.City, e.Snapshot.Temperature, e.Snapshot.Description)
	}
	return nil
}

func (a *app) profile() error {
	id, ok := a.ids.Current()
	if !ok {
		return errors.New(msgProfileLogin)
	}
	st := a.weather.State()
	last := st.LastSearched
	if last == "" {
		last = "none"
	}
	fmt.Fprintf(a.out, "User:           %s\n", id.ID)
	fmt.Fprintf(a.out, "Favorites:      %d\n", len(a.favorites.List()))
	fmt.Fprintf(a.out, "Last searched:  %s\n", last)
	return nil
}

func (a *app) login(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("usage: weather login <user-id>")
	}
	a.ids.Set(ctx, identity.Identity{ID: id})
	if err := a.sessions.SaveIdentity(ctx, id); err != nil {
		a.log.Warn("saving identity failed", "err", err)
	}
	fmt.Fprintf(a.out, "Signed in as %s (%d favorites)\n", id, len(a.favorites.List()))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	a.ids.Clear(ctx)
	if err := a.sessions.SaveIdentity(ctx, ""); err != nil {
		a.log.Warn("clearing identity failed", "err", err)
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) printState() {
	st := a.weather.State()
	if st.Current == nil {
		fmt.Fprintln(a.out, "No weather yet. Try: weather search <city>")
		return
	}
	if st.Restored {
		fmt.Fprintf(a.out, "Last search: %s\n", st.LastSearched)
	}
	printSnapshot(a.out, st.Current)
}

func printSnapshot(w io.Writer, s *weather.Snapshot) {
	fmt.Fprintf(w, "%s, %s\n", s.Location, s.Country)
	fmt.Fprintf(w, "  %d°C  %s\n", s.Temperature, s.Description)
	fmt.Fprintf(w, "  Humidity %d%%  Wind %d km/h  Visibility %d km  Pressure %d hPa\n",
		s.Humidity, s.WindSpeed, s.Visibility, s.Pressure)
}

// messageOf returns the text to show for err.
func messageOf(err error) string {
	if errors.Is(err, favorites.ErrLoginRequired) {
		return favorites.MsgLoginRequired
	}
	return weather.Message(err)
}
