// Package units converts and formats temperatures.
package units

import (
	"fmt"
	"math"
	"strings"
)

type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

const kelvinOffset = 273.15

func KelvinToCelsius(k float64) float64 { return k - kelvinOffset }

func CelsiusToFahrenheit(c float64) float64 { return 1.8*c + 32 }

func FahrenheitToCelsius(f float64) float64 { return (f - 32) / 1.8 }

// FromCelsius returns c expressed in u.
func FromCelsius(c float64, u Unit) float64 {
	if u == Fahrenheit {
		return CelsiusToFahrenheit(c)
	}
	return c
}

// Label renders t the way the weather screen shows it: the whole-degree part,
// truncated toward zero, followed by a degree sign.
func Label(t float64) string {
	whole := int(math.Trunc(t))
	return fmt.Sprintf("%d°", whole)
}

func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "celsius", "metric":
		return Celsius, nil
	case "f", "fahrenheit", "imperial":
		return Fahrenheit, nil
	default:
		return Celsius, fmt.Errorf("invalid unit %q (allowed: c, f)", s)
	}
}
