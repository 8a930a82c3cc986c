package weather

import "fmt"

// Coordinates is a WGS-84 point. Latitude is in [-90, 90], longitude in [-180, 180].
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are within range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Key returns a canonical string for logging.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Location names the place a report was resolved to.
type Location struct {
	City        string `json:"city"`
	CountryCode string `json:"countryCode"`
}

// Conditions is the mandatory block of every report.
type Conditions struct {
	Description  string  `json:"description"`
	TempC        float64 `json:"tempC"`
	FeelsLikeC   float64 `json:"feelsLikeC"`
	HumidityPct  int     `json:"humidityPct"`
	WindSpeedMps float64 `json:"windSpeedMps"`
}

// AirQuality carries the provider AQI (1-5) and the pollutants we display.
// A nil pollutant means the provider did not report it.
type AirQuality struct {
	AQI  int      `json:"aqi"`
	PM25 *float64 `json:"pm2_5,omitempty"`
	PM10 *float64 `json:"pm10,omitempty"`
	NO2  *float64 `json:"no2,omitempty"`
}

// Alert is an active weather warning in provider order.
type Alert struct {
	Event       string `json:"event"`
	Description string `json:"description"`
}

// Report is the merged result of one lookup. It is built once by Service and
// not modified afterwards.
type Report struct {
	Location    Location    `json:"location"`
	Coordinates Coordinates `json:"coordinates"`
	Conditions  Conditions  `json:"conditions"`

	UVIndex    *float64    `json:"uvIndex,omitempty"`
	AirQuality *AirQuality `json:"airQuality,omitempty"`
	Alerts     []Alert     `json:"alerts,omitempty"`
}

// CurrentReading is what the mandatory current-conditions call yields.
type CurrentReading struct {
	Location    Location
	Coordinates Coordinates
	Conditions  Conditions
}

// UVAlerts is what the One Call lookup yields. UVIndex is nil when absent.
type UVAlerts struct {
	UVIndex *float64
	Alerts  []Alert
}
