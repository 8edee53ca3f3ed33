package models

import "time"

type Location struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Reading is the current weather for one place. TempC is always Celsius;
// the displayed unit is applied when rendering a View.
type Reading struct {
	City      string    `json:"city"`
	TempC     float64   `json:"temp_c"`
	Condition int       `json:"condition"`
	Icon      string    `json:"icon"`
	FetchedAt time.Time `json:"fetched_at"`
}

// View holds the three display fields plus the values they were rendered from.
type View struct {
	CityLabel        string  `json:"city_label"`
	TemperatureLabel string  `json:"temperature_label"`
	Icon             string  `json:"icon"`
	Unit             string  `json:"unit"`
	Temperature      float64 `json:"temperature"`
	Condition        int     `json:"condition"`
}
