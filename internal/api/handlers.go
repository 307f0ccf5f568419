package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/neexbeast/skycast/internal/metrics"
	"github.com/neexbeast/skycast/internal/weather"
)

const maxBodyBytes = 64 << 10

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	adapter   WeatherAdapter
	favorites FavoritesRepo
	metrics   *metrics.Collector
	validate  *validator.Validate
	log       *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(adapter WeatherAdapter, favorites FavoritesRepo, m *metrics.Collector, log *slog.Logger) *Handlers {
	return &Handlers{
		adapter:   adapter,
		favorites: favorites,
		metrics:   m,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type coordinatesBody struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type weatherRequest struct {
	City        string           `json:"city"`
	Coordinates *coordinatesBody `json:"coordinates"`
}

// query converts the body into a weather.Query. Partial or out-of-range
// coordinates are rejected rather than forwarded upstream.
func (req weatherRequest) query() (weather.Query, error) {
	q := weather.Query{City: strings.TrimSpace(req.City)}
	if c := req.Coordinates; c != nil {
		if c.Lat == nil || c.Lon == nil || math.Abs(*c.Lat) > 90 || math.Abs(*c.Lon) > 180 {
			return q, &weather.Error{Kind: weather.KindInvalidRequest, Message: "Coordinates must include a valid lat and lon"}
		}
		q.Coordinates = &weather.Coordinates{Lat: *c.Lat, Lon: *c.Lon}
	}
	return q, nil
}

// GetWeather handles POST /api/v1/weather.
// Body is {"city": "..."} or {"coordinates": {"lat": n, "lon": n}}.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	var req weatherRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.log.Warn("decoding weather request", "err", err)
		h.metrics.RecordWeatherLookup("", weather.KindInvalidRequest.String())
		writeError(w, http.StatusBadRequest, weather.MsgInvalidRequest)
		return
	}

	q, err := req.query()
	if err == nil {
		var snap weather.Snapshot
		snap, err = h.adapter.FetchWeather(r.Context(), q)
		if err == nil {
			h.metrics.RecordWeatherLookup(q.Kind(), "ok")
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}

	kind := weather.KindOf(err)
	h.metrics.RecordWeatherLookup(q.Kind(), kind.String())
	if kind == weather.KindInternal {
		h.log.Error("weather lookup failed", "kind", q.Kind(), "err", err)
	}
	writeError(w, kind.HTTPStatus(), weather.Message(err))
}

type favoritesResponse struct {
	Favorites []string `json:"favorites"`
}

// ListFavorites handles GET /api/v1/favorites.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	favs, err := h.favorites.List(r.Context(), identity)
	if err != nil {
		h.log.Error("listing favorites failed", "identity", identity, "err", err)
		h.metrics.RecordFavoritesOp("list", "error")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	cities := make([]string, 0, len(favs))
	for _, f := range favs {
		cities = append(cities, f.City)
	}
	h.metrics.RecordFavoritesOp("list", "ok")
	writeJSON(w, http.StatusOK, favoritesResponse{Favorites: cities})
}

type favoriteRequest struct {
	City string `json:"city" validate:"required,max=100"`
}

type favoriteResponse struct {
	City    string `json:"city"`
	Created bool   `json:"created"`
}

// AddFavorite handles POST /api/v1/favorites.
// 201 when the row is new, 200 when it already existed.
func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var req favoriteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.City = strings.TrimSpace(req.City)
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "city: failed "+verrs[0].Tag()+" validation")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.favorites.Insert(r.Context(), identity, req.City)
	if err != nil {
		h.log.Error("inserting favorite failed", "identity", identity, "city", req.City, "err", err)
		h.metrics.RecordFavoritesOp("add", "error")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusOK
	result := "exists"
	if created {
		status = http.StatusCreated
		result = "created"
	}
	h.metrics.RecordFavoritesOp("add", result)
	writeJSON(w, status, favoriteResponse{City: req.City, Created: created})
}

// RemoveFavorite handles DELETE /api/v1/favorites?city=<name>.
// Deleting an absent favorite still answers 204.
func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		writeError(w, http.StatusBadRequest, "city query parameter is required")
		return
	}

	deleted, err := h.favorites.Delete(r.Context(), identity, city)
	if err != nil {
		h.log.Error("deleting favorite failed", "identity", identity, "city", city, "err", err)
		h.metrics.RecordFavoritesOp("remove", "error")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	result := "absent"
	if deleted {
		result = "deleted"
	}
	h.metrics.RecordFavoritesOp("remove", result)
	w.WriteHeader(http.StatusNoContent)
}

// Pinger is a dependency the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that pings every named dependency.
// 200 when all respond, 503 otherwise.
func HealthHandlerFunc(deps map[string]Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}

		for name, dep := range deps {
			body[name] = "ok"
			if err := dep.Ping(ctx); err != nil {
				log.Error("health check: ping failed", "dependency", name, "err", err)
				body[name] = "error"
				status = http.StatusServiceUnavailable
			}
		}

		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		writeJSON(w, status, body)
	}
}
