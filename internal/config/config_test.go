package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clima/internal/units"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8095" || cfg.Unit != units.Celsius || cfg.CacheTTL != 15*time.Minute {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Location.Source != "geoip" || cfg.Location.Attempts != 3 || cfg.Location.Interval != 2*time.Second {
		t.Fatalf("unexpected location defaults %+v", cfg.Location)
	}
}

func TestLoadEnvAliases(t *testing.T) {
	t.Setenv("WEATHER_SERVICE_PORT", "9000")
	t.Setenv("OPENWEATHER_API_KEY", " secret ")
	t.Setenv("WEATHER_CACHE_TTL_MINUTES", "5")
	t.Setenv("CLIMA_UNIT", "fahrenheit")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("expected port from alias, got %q", cfg.Port)
	}
	if cfg.OpenWeatherAPIKey != "secret" {
		t.Fatalf("expected trimmed key, got %q", cfg.OpenWeatherAPIKey)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %v", cfg.CacheTTL)
	}
	if cfg.Unit != units.Fahrenheit {
		t.Fatalf("expected fahrenheit, got %v", cfg.Unit)
	}
}

func TestLoadPortPrecedence(t *testing.T) {
	t.Setenv("PORT", "8100")
	t.Setenv("WEATHER_SERVICE_PORT", "9000")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8100" {
		t.Fatalf("expected PORT to win, got %q", cfg.Port)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clima.yaml")
	yaml := `
port: "7000"
unit: f
cache_ttl: 30m
refresh_cron: "@every 10m"
location:
  source: static
  lat: 47.4979
  lon: 19.0402
mqtt:
  topic: home/weather
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "7100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "7100" {
		t.Fatalf("expected env to override file, got %q", cfg.Port)
	}
	if cfg.Unit != units.Fahrenheit || cfg.CacheTTL != 30*time.Minute || cfg.RefreshCron != "@every 10m" {
		t.Fatalf("unexpected values %+v", cfg)
	}
	if cfg.Location.Source != "static" || cfg.Location.Lat != 47.4979 || cfg.Location.Lon != 19.0402 {
		t.Fatalf("unexpected location %+v", cfg.Location)
	}
	if cfg.MQTT.Topic != "home/weather" {
		t.Fatalf("unexpected topic %q", cfg.MQTT.Topic)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"CLIMA_UNIT":            "kelvin",
		"APP_ENV":               "staging",
		"CLIMA_LOCATION_SOURCE": "gps",
	}
	for env, val := range cases {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for %s=%s", env, val)
			}
		})
	}
}

func TestLoadRejectsOutOfRangeStatic(t *testing.T) {
	t.Setenv("CLIMA_LOCATION_SOURCE", "static")
	t.Setenv("CLIMA_LAT", "91")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}
