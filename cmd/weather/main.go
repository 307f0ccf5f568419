// Command weather is the skycast terminal client: city and current-location
// lookups, the restored last search, and favorites for the signed-in user.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neexbeast/skycast/internal/config"
	"github.com/neexbeast/skycast/internal/geo"
	"github.com/neexbeast/skycast/internal/remote"
)

const usage = `usage: weather [-v] <command> [args]

commands:
  search <city>             look up a city
  here                      look up the current location
  show                      show the last result
  favorites                 list favorites with current conditions
  favorites add [city]      save a city (default: the last result)
  favorites remove <city>   remove a saved city
  favorites open <city>     look up a saved city
  profile                   show the signed-in user's summary
  login <user-id>           sign in
  logout                    sign out
  forget                    clear the stored last search
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("command required")
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, closeSessions := openSessions(ctx, cfg.RedisURL, cfg.SessionNamespace, log)
	defer closeSessions()

	// Without a lookup service the client cannot locate itself at all;
	// with location switched off it behaves like a denied permission.
	var locator geo.Locator
	switch {
	case !cfg.LocationEnabled:
		locator = geo.Denied{}
	case cfg.GeolocationURL != "":
		locator = geo.NewIPLocatorWithURL(cfg.GeolocationURL)
	}

	a := newApp(ctx, deps{
		out:       os.Stdout,
		log:       log,
		fetcher:   remote.NewWeatherClient(cfg.APIURL, cfg.BearerToken),
		favorites: remote.NewFavoritesClient(cfg.APIURL, cfg.BearerToken),
		sessions:  sessions,
		locator:   locator,
		userID:    cfg.UserID,
	})
	return a.dispatch(ctx, flag.Args())
}
