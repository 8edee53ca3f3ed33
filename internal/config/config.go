package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clima/internal/units"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv            string
	Port              string
	LogLevel          string
	OpenWeatherAPIKey string
	OpenWeatherURL    string
	Unit              units.Unit
	CacheTTL          time.Duration
	RefreshCron       string
	HistoryRetention  time.Duration
	OTLPEndpoint      string
	Location          LocationConfig
	Redis             RedisConfig
	Database          DBConfig
	MQTT              MQTTConfig
}

type LocationConfig struct {
	// Source is "geoip" or "static".
	Source   string
	Lat      float64
	Lon      float64
	GeoIPURL string
	Attempts int
	Interval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DBConfig selects Postgres when Host is set and SQLite otherwise.
type DBConfig struct {
	SQLitePath string
	User       string
	Password   string
	DBName     string
	Host       string
	Port       string
	SSLMode    string
}

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
}

// envBindings maps config keys to environment variables, in order of
// precedence.
var envBindings = map[string][]string{
	"app_env":                    {"APP_ENV"},
	"port":                       {"PORT", "WEATHER_SERVICE_PORT"},
	"log_level":                  {"LOG_LEVEL"},
	"openweather.api_key":        {"OPENWEATHER_API_KEY"},
	"openweather.url":            {"OPENWEATHER_URL"},
	"unit":                       {"CLIMA_UNIT"},
	"cache_ttl":                  {"WEATHER_CACHE_TTL"},
	"cache_ttl_minutes":          {"CACHE_TTL_MINUTES", "WEATHER_CACHE_TTL_MINUTES"},
	"refresh_cron":               {"CLIMA_REFRESH_CRON"},
	"history_retention":          {"CLIMA_HISTORY_RETENTION"},
	"otlp_endpoint":              {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"location.source":            {"CLIMA_LOCATION_SOURCE"},
	"location.lat":               {"CLIMA_LAT"},
	"location.lon":               {"CLIMA_LON"},
	"location.geoip_url":         {"CLIMA_GEOIP_URL"},
	"location.attempts":          {"CLIMA_LOCATION_ATTEMPTS"},
	"location.interval":          {"CLIMA_LOCATION_INTERVAL"},
	"redis.addr":                 {"REDIS_ADDR"},
	"redis.password":             {"REDIS_PASSWORD"},
	"redis.db":                   {"REDIS_DB"},
	"database.sqlite_path":       {"CLIMA_SQLITE_PATH"},
	"database.postgres.user":     {"POSTGRES_USER"},
	"database.postgres.password": {"POSTGRES_PASSWORD"},
	"database.postgres.db":       {"POSTGRES_DB"},
	"database.postgres.host":     {"POSTGRES_HOST"},
	"database.postgres.port":     {"POSTGRES_PORT"},
	"database.postgres.sslmode":  {"POSTGRES_SSLMODE"},
	"mqtt.broker_url":            {"MQTT_BROKER_URL"},
	"mqtt.client_id":             {"CLIMA_MQTT_CLIENT_ID"},
	"mqtt.topic":                 {"CLIMA_MQTT_TOPIC"},
}

// Load reads the optional YAML file at path and overlays the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("app_env", "prod")
	v.SetDefault("port", "8095")
	v.SetDefault("log_level", "info")
	v.SetDefault("openweather.url", "https://api.openweathermap.org")
	v.SetDefault("unit", "c")
	v.SetDefault("cache_ttl", "15m")
	v.SetDefault("history_retention", "720h")
	v.SetDefault("location.source", "geoip")
	v.SetDefault("location.attempts", 3)
	v.SetDefault("location.interval", "2s")
	v.SetDefault("database.sqlite_path", "clima.db")
	v.SetDefault("database.postgres.port", "5432")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("mqtt.client_id", "clima")
	v.SetDefault("mqtt.topic", "clima/weather/state")

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	unit, err := units.ParseUnit(v.GetString("unit"))
	if err != nil {
		return nil, err
	}

	ttl := v.GetDuration("cache_ttl")
	if m := v.GetInt("cache_ttl_minutes"); m > 0 {
		ttl = time.Duration(m) * time.Minute
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	cfg := &Config{
		AppEnv:            strings.ToLower(strings.TrimSpace(v.GetString("app_env"))),
		Port:              strings.TrimSpace(v.GetString("port")),
		LogLevel:          v.GetString("log_level"),
		OpenWeatherAPIKey: strings.TrimSpace(v.GetString("openweather.api_key")),
		OpenWeatherURL:    strings.TrimSpace(v.GetString("openweather.url")),
		Unit:              unit,
		CacheTTL:          ttl,
		RefreshCron:       strings.TrimSpace(v.GetString("refresh_cron")),
		HistoryRetention:  v.GetDuration("history_retention"),
		OTLPEndpoint:      strings.TrimSpace(v.GetString("otlp_endpoint")),
		Location: LocationConfig{
			Source:   strings.ToLower(strings.TrimSpace(v.GetString("location.source"))),
			Lat:      v.GetFloat64("location.lat"),
			Lon:      v.GetFloat64("location.lon"),
			GeoIPURL: strings.TrimSpace(v.GetString("location.geoip_url")),
			Attempts: v.GetInt("location.attempts"),
			Interval: v.GetDuration("location.interval"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("redis.addr")),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Database: DBConfig{
			SQLitePath: strings.TrimSpace(v.GetString("database.sqlite_path")),
			User:       strings.TrimSpace(v.GetString("database.postgres.user")),
			Password:   v.GetString("database.postgres.password"),
			DBName:     strings.TrimSpace(v.GetString("database.postgres.db")),
			Host:       strings.TrimSpace(v.GetString("database.postgres.host")),
			Port:       strings.TrimSpace(v.GetString("database.postgres.port")),
			SSLMode:    v.GetString("database.postgres.sslmode"),
		},
		MQTT: MQTTConfig{
			BrokerURL: strings.TrimSpace(v.GetString("mqtt.broker_url")),
			ClientID:  v.GetString("mqtt.client_id"),
			Topic:     v.GetString("mqtt.topic"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	slog.Debug("config loaded", "port", cfg.Port, "location_source", cfg.Location.Source, "unit", cfg.Unit, "cache_ttl", cfg.CacheTTL)
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AppEnv {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", c.AppEnv)
	}
	switch c.Location.Source {
	case "geoip":
	case "static":
		if c.Location.Lat < -90 || c.Location.Lat > 90 || c.Location.Lon < -180 || c.Location.Lon > 180 {
			return fmt.Errorf("static location out of range: %v,%v", c.Location.Lat, c.Location.Lon)
		}
	default:
		return fmt.Errorf("invalid location source %q (allowed: geoip, static)", c.Location.Source)
	}
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	return nil
}
