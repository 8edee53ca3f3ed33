package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"clima/internal/cache"
	"clima/internal/location"
	"clima/internal/models"
	"clima/internal/owm"
	"clima/internal/screen"
	"clima/internal/store"
	"clima/internal/units"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RecentLister interface {
	Recent(ctx context.Context, limit int) ([]store.Lookup, error)
}

type Deps struct {
	OWM     *owm.Client
	Cache   cache.Store
	Screen  *screen.Weather
	Recent  RecentLister
	Live    http.Handler
	Metrics http.Handler
}

type Server struct {
	owm     *owm.Client
	cache   cache.Store
	screen  *screen.Weather
	recent  RecentLister
	live    http.Handler
	metrics http.Handler
}

func NewServer(d Deps) *Server {
	c := d.Cache
	if c == nil {
		c = cache.Nop{}
	}
	return &Server{owm: d.OWM, cache: c, screen: d.Screen, recent: d.Recent, live: d.Live, metrics: d.Metrics}
}

// Handler builds the router. Extra middleware runs after the standard
// recover/request-id stack and before routing.
func (s *Server) Handler(extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	for _, mw := range extra {
		r.Use(mw)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Trace-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "mock": s.owm.Mock()})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		s.RegisterRoutes(r)
	})
	return r
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/weather", s.handleWeather)
	r.Get("/weather/search", s.handleSearchLocations)
	r.Get("/weather/reverse", s.handleReverseGeocode)
	r.Get("/weather/recent", s.handleRecent)

	r.Get("/weather/current", s.handleCurrent)
	r.Post("/weather/locate", s.handleLocate)
	r.Post("/weather/city", s.handleChangeCity)
	r.Put("/weather/unit", s.handleSetUnit)
	if s.live != nil {
		r.Method(http.MethodGet, "/weather/ws", s.live)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a fetch error to the HTTP status returned with the view.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, screen.ErrEmptyCity):
		return http.StatusBadRequest
	case errors.Is(err, location.ErrLocationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, owm.ErrWeatherUnavailable):
		return http.StatusNotFound
	case errors.Is(err, owm.ErrConnection):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseCoords(r *http.Request) (lat, lon float64, ok bool, errMsg string) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		return 0, 0, false, "lat and lon parameters are required"
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false, "invalid lat parameter"
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false, "invalid lon parameter"
	}
	return lat, lon, true, ""
}

func parseLimit(r *http.Request, def, max int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= max {
			return l
		}
	}
	return def
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))

	unit := s.screen.Unit()
	if u := r.URL.Query().Get("unit"); u != "" {
		parsed, err := units.ParseUnit(u)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		unit = parsed
	}

	var (
		key     string
		reading models.Reading
		err     error
	)
	if r.URL.Query().Get("lat") != "" || r.URL.Query().Get("lon") != "" {
		lat, lon, ok, msg := parseCoords(r)
		if !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		key = cache.CoordsKey(lat, lon)
		if cached, hit := s.cache.Get(r.Context(), key); hit {
			writeJSON(w, http.StatusOK, screen.Render(cached, unit))
			return
		}
		reading, err = s.owm.ByCoordinates(r.Context(), lat, lon)
	} else if city != "" {
		key = cache.CityKey(city)
		if cached, hit := s.cache.Get(r.Context(), key); hit {
			writeJSON(w, http.StatusOK, screen.Render(cached, unit))
			return
		}
		reading, err = s.owm.ByCity(r.Context(), city)
	} else {
		writeError(w, http.StatusBadRequest, "location is required (provide lat/lon or city)")
		return
	}

	if err != nil {
		msg := "failed to fetch weather"
		if errors.Is(err, owm.ErrWeatherUnavailable) {
			msg = "weather unavailable"
		}
		writeError(w, statusFor(err), msg)
		return
	}

	s.cache.Set(r.Context(), key, reading)
	writeJSON(w, http.StatusOK, screen.Render(reading, unit))
}

func (s *Server) handleSearchLocations(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	locations, err := s.owm.SearchLocations(r.Context(), query, parseLimit(r, 5, 10))
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to search locations")
		return
	}
	if locations == nil {
		locations = []models.Location{}
	}

	// Return a plain array for frontend convenience.
	writeJSON(w, http.StatusOK, locations)
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok, msg := parseCoords(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	loc, err := s.owm.ReverseGeocode(r.Context(), lat, lon)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to reverse geocode")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.recent == nil {
		writeJSON(w, http.StatusOK, []store.Lookup{})
		return
	}
	lookups, err := s.recent.Recent(r.Context(), parseLimit(r, 10, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list recent lookups")
		return
	}
	writeJSON(w, http.StatusOK, lookups)
}

func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.screen.View())
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	v, err := s.screen.Start(r.Context())
	writeJSON(w, statusFor(err), v)
}

type changeCityRequest struct {
	City string `json:"city"`
}

func (s *Server) handleChangeCity(w http.ResponseWriter, r *http.Request) {
	var req changeCityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v, err := s.screen.ChangeCity(r.Context(), req.City)
	if errors.Is(err, screen.ErrEmptyCity) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, statusFor(err), v)
}

type setUnitRequest struct {
	Unit string `json:"unit"`
}

func (s *Server) handleSetUnit(w http.ResponseWriter, r *http.Request) {
	var req setUnitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := units.ParseUnit(req.Unit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.screen.SetUnit(u))
}
