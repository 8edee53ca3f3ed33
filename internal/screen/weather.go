// Package screen holds the state behind the weather screen: the current
// reading, the Celsius/Fahrenheit switch and the label shown in place of
// the city name when something goes wrong.
package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"clima/internal/cache"
	"clima/internal/location"
	"clima/internal/models"
	"clima/internal/observability"
	"clima/internal/owm"
	"clima/internal/store"
	"clima/internal/units"
)

const (
	StatusConnection  = "Connection issues"
	StatusUnavailable = "Weather Unavailable"
	StatusLocation    = "Loc. unavailable"
)

var ErrEmptyCity = errors.New("city name is required")

type Provider interface {
	ByCoordinates(ctx context.Context, lat, lon float64) (models.Reading, error)
	ByCity(ctx context.Context, city string) (models.Reading, error)
}

type Locator interface {
	Locate(ctx context.Context) (location.Fix, error)
}

type Recorder interface {
	Record(ctx context.Context, l *store.Lookup) error
}

// Observer is called with every view the screen renders after a change.
type Observer func(models.View)

type Options struct {
	Cache    cache.Store
	Recorder Recorder
	Unit     units.Unit
}

type query struct {
	city     string
	lat, lon float64
}

func (q query) byCity() bool { return q.city != "" }

type Weather struct {
	provider Provider
	locator  Locator
	cache    cache.Store
	recorder Recorder

	mu        sync.Mutex
	observers []Observer
	reading   models.Reading
	loaded    bool
	unit      units.Unit
	status    string
	last      *query
	rendered  uint64

	// notifyMu orders observer calls; notified is the newest render delivered.
	notifyMu sync.Mutex
	notified uint64
}

func New(p Provider, l Locator, opts Options) *Weather {
	c := opts.Cache
	if c == nil {
		c = cache.Nop{}
	}
	u := opts.Unit
	if u != units.Fahrenheit {
		u = units.Celsius
	}
	return &Weather{provider: p, locator: l, cache: c, recorder: opts.Recorder, unit: u}
}

func (w *Weather) Observe(o Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, o)
}

// Start locates the device and loads the weather there.
func (w *Weather) Start(ctx context.Context) (models.View, error) {
	fix, err := w.locator.Locate(ctx)
	if err != nil {
		slog.Warn("location unavailable", "error", err)
		observability.ObserveFetch("locate", "location_error")
		return w.fail(StatusLocation), err
	}
	slog.Info("location acquired", "lat", fix.Lat, "lon", fix.Lon)
	return w.load(ctx, "locate", query{lat: fix.Lat, lon: fix.Lon})
}

// ChangeCity loads the weather for a city name entered by the user.
func (w *Weather) ChangeCity(ctx context.Context, city string) (models.View, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return w.View(), ErrEmptyCity
	}
	return w.load(ctx, "city", query{city: city})
}

// Refresh repeats the last successful lookup, or locates the device when
// nothing has been loaded yet.
func (w *Weather) Refresh(ctx context.Context) (models.View, error) {
	w.mu.Lock()
	last := w.last
	w.mu.Unlock()
	if last == nil {
		return w.Start(ctx)
	}
	return w.load(ctx, "refresh", *last)
}

// SetUnit flips the temperature switch. The reading is kept in Celsius, so
// this only changes how it is rendered. Once a reading is loaded the city
// name replaces any failure status.
func (w *Weather) SetUnit(u units.Unit) models.View {
	w.mu.Lock()
	w.unit = u
	if w.loaded {
		w.status = ""
	}
	return w.publishLocked()
}

func (w *Weather) Unit() units.Unit {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unit
}

func (w *Weather) View() models.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.renderLocked()
}

func (w *Weather) load(ctx context.Context, trigger string, q query) (models.View, error) {
	r, err := w.fetch(ctx, q, trigger == "refresh")
	if err != nil {
		status := StatusConnection
		result := "connection_error"
		if errors.Is(err, owm.ErrWeatherUnavailable) {
			status = StatusUnavailable
			result = "unavailable"
		}
		slog.Warn("weather fetch failed", "trigger", trigger, "query", q.String(), "error", err)
		observability.ObserveFetch(trigger, result)
		return w.fail(status), err
	}

	observability.ObserveFetch(trigger, "ok")
	slog.Info("weather updated", "trigger", trigger, "city", r.City, "temp_c", r.TempC, "condition", r.Condition)

	w.mu.Lock()
	w.reading = r
	w.loaded = true
	w.status = ""
	w.last = &q
	return w.publishLocked(), nil
}

// fetch serves q from the cache unless fresh is set, in which case the
// provider is always asked and the cache overwritten.
func (w *Weather) fetch(ctx context.Context, q query, fresh bool) (models.Reading, error) {
	key := cache.CoordsKey(q.lat, q.lon)
	if q.byCity() {
		key = cache.CityKey(q.city)
	}
	if !fresh {
		if r, ok := w.cache.Get(ctx, key); ok {
			return r, nil
		}
	}

	var (
		r   models.Reading
		err error
	)
	if q.byCity() {
		r, err = w.provider.ByCity(ctx, q.city)
	} else {
		r, err = w.provider.ByCoordinates(ctx, q.lat, q.lon)
	}
	if err != nil {
		return models.Reading{}, err
	}

	w.cache.Set(ctx, key, r)
	w.record(ctx, q, r)
	return r, nil
}

func (w *Weather) record(ctx context.Context, q query, r models.Reading) {
	if w.recorder == nil {
		return
	}
	l := &store.Lookup{
		City:      r.City,
		Query:     q.city,
		TempC:     r.TempC,
		Condition: r.Condition,
		Icon:      r.Icon,
		FetchedAt: r.FetchedAt,
	}
	if !q.byCity() {
		lat, lon := q.lat, q.lon
		l.Lat, l.Lon = &lat, &lon
	}
	if err := w.recorder.Record(ctx, l); err != nil {
		slog.Warn("recording lookup failed", "city", r.City, "error", err)
	}
}

// fail replaces the city label with status. Temperature and icon keep
// whatever the last successful fetch put there.
func (w *Weather) fail(status string) models.View {
	w.mu.Lock()
	w.status = status
	return w.publishLocked()
}

// publishLocked renders the current state, releases w.mu and hands the view
// to the observers. A view rendered before one that was already delivered
// is dropped, so observers always end on the newest state.
func (w *Weather) publishLocked() models.View {
	w.rendered++
	seq := w.rendered
	v := w.renderLocked()
	observers := w.observers
	w.mu.Unlock()

	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	if seq <= w.notified {
		return v
	}
	w.notified = seq
	notify(observers, v)
	return v
}

func (w *Weather) renderLocked() models.View {
	v := models.View{Unit: string(w.unit)}
	if w.loaded {
		v = Render(w.reading, w.unit)
	}
	if w.status != "" {
		v.CityLabel = w.status
	}
	return v
}

// Render turns a reading into display fields in unit u.
func Render(r models.Reading, u units.Unit) models.View {
	t := units.FromCelsius(r.TempC, u)
	return models.View{
		CityLabel:        r.City,
		TemperatureLabel: units.Label(t),
		Icon:             r.Icon,
		Unit:             string(u),
		Temperature:      t,
		Condition:        r.Condition,
	}
}

func notify(observers []Observer, v models.View) {
	for _, o := range observers {
		o(v)
	}
}

func (q query) String() string {
	if q.byCity() {
		return q.city
	}
	return fmt.Sprintf("%.4f,%.4f", q.lat, q.lon)
}
