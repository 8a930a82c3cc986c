// Package report renders a weather.Report as chat text.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-bot/internal/common"
	"github.com/i474232898/weather-bot/internal/weather"
)

const (
	// MaxAlerts is the number of alerts rendered; the rest are dropped.
	MaxAlerts = 3
	// MaxAlertDescription is the rune length above which a description is cut.
	MaxAlertDescription = 100
	ellipsis            = "..."

	missingValue       = "N/A"
	unknownAlertEvent  = "Unknown Alert"
	unknownAlertDetail = "No details available"
)

// UVLevel is a step of the UV risk ladder.
type UVLevel struct {
	Label  string
	Advice string
}

var (
	UVLow      = UVLevel{Label: "Low", Advice: "No protection required"}
	UVModerate = UVLevel{Label: "Moderate", Advice: "Protection recommended"}
	UVHigh     = UVLevel{Label: "High", Advice: "Protection essential"}
	UVVeryHigh = UVLevel{Label: "Very High", Advice: "Extra protection needed"}
	UVExtreme  = UVLevel{Label: "Extreme", Advice: "Maximum protection required"}
)

// ClassifyUV places uvi on the ladder. Each step includes its lower bound.
func ClassifyUV(uvi float64) UVLevel {
	switch {
	case uvi < 3:
		return UVLow
	case uvi < 6:
		return UVModerate
	case uvi < 8:
		return UVHigh
	case uvi < 11:
		return UVVeryHigh
	default:
		return UVExtreme
	}
}

// String renders the level the way it appears in a report.
func (l UVLevel) String() string {
	return fmt.Sprintf("%s Risk (%s)", l.Label, l.Advice)
}

var aqiDescriptions = map[int]string{
	1: "Excellent (Very Good)",
	2: "Fair (Good)",
	3: "Moderate (Acceptable)",
	4: "Poor (Unhealthy)",
	5: "Very Poor (Hazardous)",
}

// AirQualityDescription maps a 1-5 AQI to its description, "Unknown" otherwise.
func AirQualityDescription(aqi int) string {
	if d, ok := aqiDescriptions[aqi]; ok {
		return d
	}
	return "Unknown"
}

// Format renders r. It has no side effects and the same report always yields
// the same text.
func Format(r weather.Report) string {
	var b strings.Builder

	writeConditions(&b, r)

	if r.UVIndex != nil {
		uvi := *r.UVIndex
		fmt.Fprintf(&b, "\n\n☀️ UV Index: %s - %s", common.FormatFloat(uvi), ClassifyUV(uvi))
	}

	if r.AirQuality != nil {
		aq := r.AirQuality
		fmt.Fprintf(&b, "\n\n🌬 Air Quality: %s", AirQualityDescription(aq.AQI))
		fmt.Fprintf(&b, "\n   - PM2.5: %s μg/m³", pollutant(aq.PM25))
		fmt.Fprintf(&b, "\n   - PM10: %s μg/m³", pollutant(aq.PM10))
		fmt.Fprintf(&b, "\n   - NO₂: %s μg/m³", pollutant(aq.NO2))
	}

	if len(r.Alerts) > 0 {
		b.WriteString("\n\n⚠️ Weather Alerts:")
		for i, a := range r.Alerts {
			if i == MaxAlerts {
				break
			}
			fmt.Fprintf(&b, "\n%d. %s: %s", i+1, alertEvent(a), alertDescription(a))
		}
	}

	return b.String()
}

func writeConditions(b *strings.Builder, r weather.Report) {
	c := r.Conditions
	fmt.Fprintf(b, "📍 Location: %s, %s\n", r.Location.City, r.Location.CountryCode)
	fmt.Fprintf(b, "🌤 Weather: %s\n", common.Capitalize(c.Description))
	fmt.Fprintf(b, "🌡 Temperature: %s°C\n", common.FormatFloat(c.TempC))
	fmt.Fprintf(b, "🤔 Feels like: %s°C\n", common.FormatFloat(c.FeelsLikeC))
	fmt.Fprintf(b, "💧 Humidity: %s%%\n", strconv.Itoa(c.HumidityPct))
	fmt.Fprintf(b, "💨 Wind speed: %s m/s", common.FormatFloat(c.WindSpeedMps))
}

func pollutant(v *float64) string {
	if v == nil {
		return missingValue
	}
	return common.FormatFloat(*v)
}

func alertEvent(a weather.Alert) string {
	if a.Event == "" {
		return unknownAlertEvent
	}
	return a.Event
}

func alertDescription(a weather.Alert) string {
	if a.Description == "" {
		return unknownAlertDetail
	}
	return common.TruncateRunes(a.Description, MaxAlertDescription, ellipsis)
}
