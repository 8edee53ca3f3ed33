package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"clima/internal/config"
	"clima/internal/location"
	"clima/internal/logging"
	"clima/internal/models"
	"clima/internal/owm"
	"clima/internal/screen"
	"clima/internal/units"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CLIMA_CONFIG"), "path to a YAML config file")
		city       = flag.String("city", "", "show the weather for this city instead of the current location")
		fahrenheit = flag.Bool("fahrenheit", false, "show the temperature in Fahrenheit")
		lat        = flag.Float64("lat", 0, "latitude to use instead of locating the device")
		lon        = flag.Float64("lon", 0, "longitude to use instead of locating the device")
		timeout    = flag.Duration("timeout", 30*time.Second, "overall timeout")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	// Diagnostics go to stderr so stdout only carries the three fields.
	slog.SetDefault(logging.New(os.Stderr, cfg.AppEnv, cfg.LogLevel, "clima"))

	provider, err := pickProvider(cfg.Location, isSet("lat"), isSet("lon"), *lat, *lon)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	unit := cfg.Unit
	if *fahrenheit {
		unit = units.Fahrenheit
	}

	client := owm.New(cfg.OpenWeatherAPIKey, owm.WithBaseURL(cfg.OpenWeatherURL))
	locator := location.NewLocator(provider, cfg.Location.Attempts, cfg.Location.Interval)
	weather := screen.New(client, locator, screen.Options{Unit: unit})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *city != "" {
		_, err = weather.ChangeCity(ctx, *city)
	} else {
		_, err = weather.Start(ctx)
	}

	for _, line := range displayLines(weather.View()) {
		fmt.Println(line)
	}
	if err != nil {
		os.Exit(2)
	}
}

// pickProvider prefers -lat/-lon, which must be given together, then the
// configured source.
func pickProvider(c config.LocationConfig, latSet, lonSet bool, lat, lon float64) (location.Provider, error) {
	switch {
	case latSet != lonSet:
		return nil, errors.New("-lat and -lon must be given together")
	case latSet:
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("coordinates out of range: %v,%v", lat, lon)
		}
		return location.Static{Lat: lat, Lon: lon}, nil
	case c.Source == "static":
		return location.Static{Lat: c.Lat, Lon: c.Lon}, nil
	default:
		return location.NewGeoIP(c.GeoIPURL), nil
	}
}

// displayLines returns the city, temperature and icon lines. The temperature
// line stays empty until a reading has been loaded.
func displayLines(v models.View) []string {
	temp := ""
	if v.TemperatureLabel != "" {
		temp = v.TemperatureLabel + v.Unit
	}
	return []string{v.CityLabel, temp, v.Icon}
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
