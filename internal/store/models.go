package store

import (
	"time"

	"github.com/google/uuid"
)

// Lookup is one successful weather fetch. Query is what the user asked for:
// a city name, or empty when the fetch used coordinates.
type Lookup struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	City      string    `gorm:"index" json:"city"`
	Query     string    `json:"query,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	TempC     float64   `json:"temp_c"`
	Condition int       `json:"condition"`
	Icon      string    `json:"icon"`
	FetchedAt time.Time `gorm:"index" json:"fetched_at"`
}
