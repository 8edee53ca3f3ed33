// Package location resolves the device's coordinates from a location
// provider. A provider reports batches of fixes; the newest fix of a batch
// is used once it carries a positive horizontal accuracy.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrLocationUnavailable = errors.New("location unavailable")

// Fix is one position report. Accuracy is the horizontal accuracy radius in
// metres; zero or negative means the fix is invalid.
type Fix struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Accuracy float64   `json:"accuracy"`
	At       time.Time `json:"at"`
}

func (f Fix) Valid() bool { return f.Accuracy > 0 }

type Provider interface {
	Fixes(ctx context.Context) ([]Fix, error)
}

type Locator struct {
	provider Provider
	attempts int
	interval time.Duration
}

func NewLocator(p Provider, attempts int, interval time.Duration) *Locator {
	if attempts <= 0 {
		attempts = 1
	}
	return &Locator{provider: p, attempts: attempts, interval: interval}
}

// Locate polls the provider until a valid fix arrives, the attempts run out,
// or ctx is done.
func (l *Locator) Locate(ctx context.Context) (Fix, error) {
	if l == nil || l.provider == nil {
		return Fix{}, fmt.Errorf("%w: no provider configured", ErrLocationUnavailable)
	}

	for attempt := 1; ; attempt++ {
		fixes, err := l.provider.Fixes(ctx)
		if err != nil {
			return Fix{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
		}
		if len(fixes) > 0 {
			last := fixes[len(fixes)-1]
			if last.Valid() {
				slog.Debug("location fix accepted", "lat", last.Lat, "lon", last.Lon, "accuracy_m", last.Accuracy, "attempt", attempt)
				return last, nil
			}
		}
		if attempt >= l.attempts {
			return Fix{}, fmt.Errorf("%w: no valid fix after %d attempts", ErrLocationUnavailable, attempt)
		}

		select {
		case <-ctx.Done():
			return Fix{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, ctx.Err())
		case <-time.After(l.interval):
		}
	}
}

// Static always reports the same position.
type Static struct {
	Lat, Lon float64
	Accuracy float64
}

func (s Static) Fixes(context.Context) ([]Fix, error) {
	acc := s.Accuracy
	if acc == 0 {
		acc = 1
	}
	return []Fix{{Lat: s.Lat, Lon: s.Lon, Accuracy: acc, At: time.Now().UTC()}}, nil
}
