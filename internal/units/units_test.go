package units

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestKelvinToCelsius(t *testing.T) {
	if got := KelvinToCelsius(273.15); !almostEqual(got, 0) {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := KelvinToCelsius(300); !almostEqual(got, 26.85) {
		t.Fatalf("expected 26.85, got %v", got)
	}
}

func TestCelsiusFahrenheitRoundTrip(t *testing.T) {
	cases := []struct {
		c, f float64
	}{
		{0, 32},
		{100, 212},
		{-40, -40},
		{21.5, 70.7},
	}
	for _, tc := range cases {
		if got := CelsiusToFahrenheit(tc.c); !almostEqual(got, tc.f) {
			t.Fatalf("CelsiusToFahrenheit(%v): expected %v, got %v", tc.c, tc.f, got)
		}
		if got := FahrenheitToCelsius(tc.f); !almostEqual(got, tc.c) {
			t.Fatalf("FahrenheitToCelsius(%v): expected %v, got %v", tc.f, tc.c, got)
		}
	}
}

func TestFromCelsius(t *testing.T) {
	if got := FromCelsius(10, Celsius); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	if got := FromCelsius(10, Fahrenheit); !almostEqual(got, 50) {
		t.Fatalf("expected 50, got %v", got)
	}
}

func TestLabelTruncatesTowardZero(t *testing.T) {
	cases := map[float64]string{
		21.9:  "21°",
		21.1:  "21°",
		0:     "0°",
		-0.7:  "0°",
		-3.99: "-3°",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Fatalf("Label(%v): expected %q, got %q", in, want, got)
		}
	}
}

func TestParseUnit(t *testing.T) {
	for _, s := range []string{"c", "C", " celsius ", "metric"} {
		u, err := ParseUnit(s)
		if err != nil || u != Celsius {
			t.Fatalf("ParseUnit(%q): expected Celsius, got %v err=%v", s, u, err)
		}
	}
	for _, s := range []string{"f", "Fahrenheit", "imperial"} {
		u, err := ParseUnit(s)
		if err != nil || u != Fahrenheit {
			t.Fatalf("ParseUnit(%q): expected Fahrenheit, got %v err=%v", s, u, err)
		}
	}
	if _, err := ParseUnit("kelvin"); err == nil {
		t.Fatalf("expected error for kelvin")
	}
}
