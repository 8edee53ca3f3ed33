package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultGeoIPURL = "http://ip-api.com/json/"

// cityAccuracy is the radius reported for IP-based fixes; IP geolocation is
// city-level at best.
const cityAccuracy = 5000

// GeoIP locates the host from its public IP address.
type GeoIP struct {
	url        string
	httpClient *http.Client
}

func NewGeoIP(url string) *GeoIP {
	if strings.TrimSpace(url) == "" {
		url = DefaultGeoIPURL
	}
	return &GeoIP{url: url, httpClient: &http.Client{Timeout: 5 * time.Second}}
}

// geoIPResponse accepts both the ip-api.com (lat/lon) and the ipapi.co
// (latitude/longitude) field names.
type geoIPResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	City      string   `json:"city"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (g *GeoIP) Fixes(ctx context.Context) ([]Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geoip lookup returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out geoIPResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding geoip response: %w", err)
	}
	if out.Status != "" && out.Status != "success" {
		return nil, fmt.Errorf("geoip lookup failed: %s", out.Message)
	}

	lat, lon := out.Lat, out.Lon
	if lat == nil || lon == nil {
		lat, lon = out.Latitude, out.Longitude
	}
	if lat == nil || lon == nil {
		// No position in the answer; report an invalid fix so the locator retries.
		return []Fix{{At: time.Now().UTC()}}, nil
	}
	return []Fix{{Lat: *lat, Lon: *lon, Accuracy: cityAccuracy, At: time.Now().UTC()}}, nil
}
