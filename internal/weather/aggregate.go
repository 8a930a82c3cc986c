package weather

// MergeReport combines the mandatory reading with whatever optional results
// arrived. A nil aq or uva leaves the matching report fields absent.
func MergeReport(cur CurrentReading, aq *AirQuality, uva *UVAlerts) Report {
	r := Report{
		Location:    cur.Location,
		Coordinates: cur.Coordinates,
		Conditions:  cur.Conditions,
	}

	if aq != nil {
		cp := *aq
		r.AirQuality = &cp
	}

	if uva != nil {
		if uva.UVIndex != nil {
			v := *uva.UVIndex
			r.UVIndex = &v
		}
		if len(uva.Alerts) > 0 {
			r.Alerts = make([]Alert, len(uva.Alerts))
			copy(r.Alerts, uva.Alerts)
		}
	}

	return r
}
