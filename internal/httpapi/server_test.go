package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clima/internal/cache"
	"clima/internal/location"
	"clima/internal/models"
	"clima/internal/owm"
	"clima/internal/screen"
	"clima/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	handler http.Handler
	screen  *screen.Weather
	repo    *store.Repo
}

func newTestEnv(t *testing.T, locator screen.Locator) *testEnv {
	t.Helper()
	// Use a unique in-memory DB per test to avoid cross-test contamination.
	dsn := "file:httpapi_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := store.New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	client := owm.New("")
	c := cache.New(time.Minute)
	scr := screen.New(client, locator, screen.Options{Cache: c, Recorder: repo})
	srv := NewServer(Deps{OWM: client, Cache: c, Screen: scr, Recent: repo})
	return &testEnv{handler: srv.Handler(), screen: scr, repo: repo}
}

func staticLocator() screen.Locator {
	return location.NewLocator(location.Static{Lat: 47.5, Lon: 19.04}, 1, 0)
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rw := httptest.NewRecorder()
	e.handler.ServeHTTP(rw, req)
	return rw
}

func decodeView(t *testing.T, rw *httptest.ResponseRecorder) models.View {
	t.Helper()
	var v models.View
	if err := json.Unmarshal(rw.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, rw.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, staticLocator())
	rw := e.do(t, http.MethodGet, "/health", nil)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rw.Body.Bytes(), &resp)
	if resp["status"] != "ok" || resp["mock"] != true {
		t.Fatalf("unexpected health %v", resp)
	}
}

func TestWeatherRequiresLocation(t *testing.T) {
	e := newTestEnv(t, staticLocator())
	rw := e.do(t, http.MethodGet, "/api/weather", nil)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestWeatherInvalidCoords(t *testing.T) {
	e := newTestEnv(t, staticLocator())
	for _, target := range []string{
		"/api/weather?lat=abc&lon=1",
		"/api/weather?lat=95&lon=1",
		"/api/weather?lat=1",
	} {
		if rw := e.do(t, http.MethodGet, target, nil); rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rw.Code)
		}
	}
}

func TestWeatherByCityInFahrenheit(t *testing.T) {
	e := newTestEnv(t, staticLocator())
	rw := e.do(t, http.MethodGet, "/api/weather?city=Vienna&unit=f", nil)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rw.Code, rw.Body.String())
	}
	v := decodeView(t, rw)
	if v.CityLabel != "Vienna" || v.Unit != "F" || v.Icon != "sunny" {
		t.Fatalf("unexpected view %+v", v)
	}
	if !strings.HasSuffix(v.TemperatureLabel, "°") {
		t.Fatalf("unexpected label %q", v.TemperatureLabel)
	}
}

func TestWeatherInvalidUnit(t *testing.T) {
	e := newTestEnv(t, staticLocator())
	if rw := e.do(t, http.MethodGet, "/api/weather?city=Vienna&unit=k", nil); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestLocateThenToggleUnit(t *testing.T) {
	e := newTestEnv(t, staticLocator())

	rw := e.do(t, http.MethodPost, "/api/weather/locate", nil)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rw.Code, rw.Body.String())
	}
	v := decodeView(t, rw)
	if v.CityLabel != "Budapest" || v.Unit != "C" {
		t.Fatalf("unexpected view %+v", v)
	}
	celsius := v.Temperature

	rw = e.do(t, http.MethodPut, "/api/weather/unit", map[string]string{"unit": "f"})
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	v = decodeView(t, rw)
	if v.Unit != "F" || v.Temperature != 1.8*celsius+32 {
		t.Fatalf("unexpected fahrenheit view %+v (celsius %v)", v, celsius)
	}

	rw = e.do(t, http.MethodGet, "/api/weather/current", nil)
	if got := decodeView(t, rw); got.Unit != "F" || got.CityLabel != "Budapest" {
		t.Fatalf("unexpected current view %+v", got)
	}
}

func TestLocateFailure(t *testing.T) {
	e := newTestEnv(t, location.NewLocator(location.Static{Accuracy: -1}, 1, 0))
	rw := e.do(t, http.MethodPost, "/api/weather/locate", nil)
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if v := decodeView(t, rw); v.CityLabel != screen.StatusLocation {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestChangeCityRecordsRecent(t *testing.T) {
	e := newTestEnv(t, staticLocator())

	for _, city := range []string{"Paris", "Tokyo", "paris"} {
		rw := e.do(t, http.MethodPost, "/api/weather/city", map[string]string{"city": city})
		if rw.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d body=%s", city, rw.Code, rw.Body.String())
		}
	}

	rw := e.do(t, http.MethodGet, "/api/weather/recent", nil)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var recent []store.Lookup
	if err := json.Unmarshal(rw.Body.Bytes(), &recent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// "paris" is served from cache, so only two provider fetches were recorded.
	if len(recent) != 2 || recent[0].City != "Tokyo" || recent[1].City != "Paris" {
		t.Fatalf("unexpected recent %+v", recent)
	}
}

func TestChangeCityValidation(t *testing.T) {
	e := newTestEnv(t, staticLocator())
	if rw := e.do(t, http.MethodPost, "/api/weather/city", "{not json"); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rw.Code)
	}
	if rw := e.do(t, http.MethodPost, "/api/weather/city", map[string]string{"city": "  "}); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty city, got %d", rw.Code)
	}
}

func TestSetUnitValidation(t *testing.T) {
	e := newTestEnv(t, staticLocator())
	if rw := e.do(t, http.MethodPut, "/api/weather/unit", map[string]string{"unit": "rankine"}); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestSearchAndReverse(t *testing.T) {
	e := newTestEnv(t, staticLocator())

	if rw := e.do(t, http.MethodGet, "/api/weather/search", nil); rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}

	rw := e.do(t, http.MethodGet, "/api/weather/search?q=o&limit=2", nil)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var locs []models.Location
	_ = json.Unmarshal(rw.Body.Bytes(), &locs)
	if len(locs) != 2 {
		t.Fatalf("expected 2 suggestions, got %+v", locs)
	}

	rw = e.do(t, http.MethodGet, "/api/weather/reverse?lat=52.37&lon=4.9", nil)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var loc models.Location
	_ = json.Unmarshal(rw.Body.Bytes(), &loc)
	if loc.Name != "Amsterdam" {
		t.Fatalf("expected Amsterdam, got %+v", loc)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{screen.ErrEmptyCity, http.StatusBadRequest},
		{location.ErrLocationUnavailable, http.StatusServiceUnavailable},
		{owm.ErrWeatherUnavailable, http.StatusNotFound},
		{owm.ErrConnection, http.StatusBadGateway},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v): expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
