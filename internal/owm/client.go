package owm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clima/internal/condition"
	"clima/internal/models"
	"clima/internal/observability"
	"clima/internal/units"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultBaseURL = "https://api.openweathermap.org"

var (
	// ErrConnection means the provider could not be reached or answered with
	// something that is not JSON.
	ErrConnection = errors.New("weather provider unreachable")
	// ErrWeatherUnavailable means the provider answered but the payload had
	// no temperature.
	ErrWeatherUnavailable = errors.New("weather unavailable")
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

type httpStatusError struct {
	status int
	body   string
}

func (e httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API returned status %d", e.status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

func isAuthFailure(err error) bool {
	var se httpStatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.status == http.StatusUnauthorized || se.status == http.StatusForbidden
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tracer: otel.Tracer("clima/owm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mock reports whether the client serves canned data because no API key is set.
func (c *Client) Mock() bool { return c.apiKey == "" }

// ByCoordinates fetches the current weather at lat/lon.
func (c *Client) ByCoordinates(ctx context.Context, lat, lon float64) (models.Reading, error) {
	if c.Mock() {
		return mockReadingNear(lat, lon), nil
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.current(ctx, q)
}

// ByCity fetches the current weather for a city name as typed by the user.
func (c *Client) ByCity(ctx context.Context, city string) (models.Reading, error) {
	if c.Mock() {
		return mockReadingFor(city), nil
	}
	q := url.Values{}
	q.Set("q", city)
	return c.current(ctx, q)
}

func (c *Client) current(ctx context.Context, q url.Values) (models.Reading, error) {
	q.Set("appid", c.apiKey)
	payload, err := c.fetchJSON(ctx, "/data/2.5/weather", q)
	if payload == nil {
		return models.Reading{}, err
	}
	// OpenWeatherMap error bodies are JSON too ({"cod":"404","message":...});
	// they carry no temperature and are reported as unavailable below.
	return parseCurrent(payload, err)
}

func parseCurrent(payload map[string]any, statusErr error) (models.Reading, error) {
	temp, ok := getMap(payload, "main")["temp"].(float64)
	if !ok {
		if msg := getString(payload, "message"); msg != "" {
			return models.Reading{}, fmt.Errorf("%w: %s", ErrWeatherUnavailable, msg)
		}
		if statusErr != nil {
			return models.Reading{}, fmt.Errorf("%w: %v", ErrWeatherUnavailable, statusErr)
		}
		return models.Reading{}, ErrWeatherUnavailable
	}

	id := int(getFloat(getFirstInArray(payload, "weather"), "id"))
	return models.Reading{
		City:      getString(payload, "name"),
		TempC:     units.KelvinToCelsius(temp),
		Condition: id,
		Icon:      condition.Icon(id),
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (c *Client) SearchLocations(ctx context.Context, query string, limit int) ([]models.Location, error) {
	if c.Mock() {
		return mockSearchLocations(query, limit), nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("appid", c.apiKey)

	var results []geoResult
	if err := c.fetchInto(ctx, "/geo/1.0/direct", q, &results); err != nil {
		// An invalid or not yet activated key should not break suggestions.
		if isAuthFailure(err) {
			return mockSearchLocations(query, limit), nil
		}
		return nil, fmt.Errorf("geocoding: %w", err)
	}

	locations := make([]models.Location, len(results))
	for i, r := range results {
		locations[i] = r.location()
	}
	return locations, nil
}

func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Location, error) {
	unknown := models.Location{Name: "Unknown", Lat: lat, Lon: lon}
	if c.Mock() {
		return nearestMockCity(lat, lon), nil
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("limit", "1")
	q.Set("appid", c.apiKey)

	var results []geoResult
	if err := c.fetchInto(ctx, "/geo/1.0/reverse", q, &results); err != nil {
		if isAuthFailure(err) {
			return unknown, nil
		}
		return models.Location{}, fmt.Errorf("reverse geocoding: %w", err)
	}
	if len(results) == 0 {
		return unknown, nil
	}
	return results[0].location(), nil
}

type geoResult struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (r geoResult) location() models.Location {
	return models.Location{Name: r.Name, Country: r.Country, State: r.State, Lat: r.Lat, Lon: r.Lon}
}

// fetchJSON issues one GET and decodes a JSON object. A non-2xx answer with
// a JSON body returns both the payload and an httpStatusError. Bodies that
// are not JSON at all are connection errors.
func (c *Client) fetchJSON(ctx context.Context, path string, q url.Values) (map[string]any, error) {
	body, status, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		if status/100 != 2 {
			return nil, fmt.Errorf("%w: %v", ErrConnection, httpStatusError{status: status, body: string(body)})
		}
		return nil, fmt.Errorf("%w: decoding response: %v", ErrConnection, err)
	}
	// Valid JSON that is not an object (null, [], "x") carries no weather.
	result, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: response is not a JSON object: %.64s", ErrWeatherUnavailable, body)
	}
	if status/100 != 2 {
		return result, httpStatusError{status: status, body: string(body)}
	}
	return result, nil
}

func (c *Client) fetchInto(ctx context.Context, path string, q url.Values, dst any) error {
	body, status, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return httpStatusError{status: status, body: string(body)}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrConnection, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, int, error) {
	ctx, span := c.tracer.Start(ctx, "owm GET "+path)
	defer span.End()

	outcome := "error"
	defer func() { observability.ObserveUpstream(path, outcome) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, 0, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.RecordError(err)
		return nil, resp.StatusCode, fmt.Errorf("%w: reading response: %v", ErrConnection, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	outcome = strconv.Itoa(resp.StatusCode)
	return body, resp.StatusCode, nil
}

var mockCities = []models.Location{
	{Name: "Budapest", Country: "HU", Lat: 47.4979, Lon: 19.0402},
	{Name: "London", Country: "GB", Lat: 51.5074, Lon: -0.1278},
	{Name: "New York", Country: "US", State: "New York", Lat: 40.7128, Lon: -74.0060},
	{Name: "Tokyo", Country: "JP", Lat: 35.6762, Lon: 139.6503},
	{Name: "Paris", Country: "FR", Lat: 48.8566, Lon: 2.3522},
	{Name: "Berlin", Country: "DE", Lat: 52.5200, Lon: 13.4050},
	{Name: "Sydney", Country: "AU", Lat: -33.8688, Lon: 151.2093},
	{Name: "San Francisco", Country: "US", State: "California", Lat: 37.7749, Lon: -122.4194},
	{Name: "Amsterdam", Country: "NL", Lat: 52.3676, Lon: 4.9041},
	{Name: "Vienna", Country: "AT", Lat: 48.2082, Lon: 16.3738},
}

func mockSearchLocations(query string, limit int) []models.Location {
	if limit <= 0 {
		limit = 5
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var matches []models.Location
	for _, city := range mockCities {
		if strings.Contains(strings.ToLower(city.Name), q) {
			matches = append(matches, city)
		}
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func nearestMockCity(lat, lon float64) models.Location {
	best := mockCities[0]
	bestDist := math.Inf(1)
	for _, city := range mockCities {
		d := math.Hypot(city.Lat-lat, city.Lon-lon)
		if d < bestDist {
			best, bestDist = city, d
		}
	}
	return best
}

// mockReading is stable sample data: warmer towards the equator, clear sky.
func mockReading(loc models.Location) models.Reading {
	return models.Reading{
		City:      loc.Name,
		TempC:     math.Round((28-math.Abs(loc.Lat)/3)*10) / 10,
		Condition: 800,
		Icon:      condition.Icon(800),
		FetchedAt: time.Now().UTC(),
	}
}

func mockReadingNear(lat, lon float64) models.Reading {
	return mockReading(nearestMockCity(lat, lon))
}

func mockReadingFor(city string) models.Reading {
	if matches := mockSearchLocations(city, 1); len(matches) > 0 {
		return mockReading(matches[0])
	}
	r := mockReading(models.Location{Name: strings.TrimSpace(city), Lat: 45})
	r.Condition = 803
	r.Icon = condition.Icon(803)
	return r
}

func getMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func getArray(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

func getFirstInArray(m map[string]any, key string) map[string]any {
	arr := getArray(m, key)
	if len(arr) > 0 {
		if v, ok := arr[0].(map[string]any); ok {
			return v
		}
	}
	return nil
}

func getFloat(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
