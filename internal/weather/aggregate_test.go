package weather

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestMergeReport(t *testing.T) {
	cur := CurrentReading{
		Location:    Location{City: "Reykjavik", CountryCode: "IS"},
		Coordinates: Coordinates{Latitude: 64.1, Longitude: -21.9},
		Conditions:  Conditions{Description: "snow", TempC: -2, FeelsLikeC: -7, HumidityPct: 90, WindSpeedMps: 9},
	}

	tests := []struct {
		name string
		aq   *AirQuality
		uva  *UVAlerts
		want Report
	}{
		{
			name: "mandatory only",
			want: Report{Location: cur.Location, Coordinates: cur.Coordinates, Conditions: cur.Conditions},
		},
		{
			name: "all parts",
			aq:   &AirQuality{AQI: 1, PM25: ptr(1.5)},
			uva:  &UVAlerts{UVIndex: ptr(0.4), Alerts: []Alert{{Event: "Snow", Description: "Heavy"}}},
			want: Report{
				Location:    cur.Location,
				Coordinates: cur.Coordinates,
				Conditions:  cur.Conditions,
				UVIndex:     ptr(0.4),
				AirQuality:  &AirQuality{AQI: 1, PM25: ptr(1.5)},
				Alerts:      []Alert{{Event: "Snow", Description: "Heavy"}},
			},
		},
		{
			name: "uv absent alerts empty",
			uva:  &UVAlerts{},
			want: Report{Location: cur.Location, Coordinates: cur.Coordinates, Conditions: cur.Conditions},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeReport(cur, tt.aq, tt.uva)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MergeReport mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeReport_DoesNotAlias(t *testing.T) {
	alerts := []Alert{{Event: "Heat"}}
	uva := &UVAlerts{UVIndex: ptr(7), Alerts: alerts}

	r := MergeReport(CurrentReading{}, nil, uva)
	alerts[0].Event = "changed"
	*uva.UVIndex = 1

	assert.Equal(t, "Heat", r.Alerts[0].Event)
	assert.Equal(t, 7.0, *r.UVIndex)
}
