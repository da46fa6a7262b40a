package route

import (
	"net/url"
	"strconv"
	"strings"

	"wellwatch/internal/types"
)

// WellDistance is a well's live distance from the current position. Wells
// without coordinates carry a nil distance.
type WellDistance struct {
	WellID     string   `json:"well_id"`
	DistanceKm *float64 `json:"distance_km"`
}

// Distances measures every well from origin, in input order.
func Distances(origin types.GeoPoint, wells []types.Well) []WellDistance {
	out := make([]WellDistance, 0, len(wells))
	for _, w := range wells {
		wd := WellDistance{WellID: w.ID}
		if pos, ok := w.Position(); ok {
			d := Haversine(origin, pos)
			wd.DistanceKm = &d
		}
		out = append(out, wd)
	}
	return out
}

const directionsBase = "https://www.google.com/maps/dir/?api=1"

// DirectionsURL builds a Google Maps driving link through stops. The last stop
// is the destination and the others are waypoints. An empty route yields "".
func DirectionsURL(origin *types.GeoPoint, stops []Stop) string {
	if len(stops) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(directionsBase)
	if origin != nil {
		b.WriteString("&origin=" + url.QueryEscape(latLng(origin.Lat, origin.Lng)))
	}
	last := stops[len(stops)-1]
	b.WriteString("&destination=" + url.QueryEscape(latLng(last.Lat, last.Lng)))

	if len(stops) > 1 {
		points := make([]string, 0, len(stops)-1)
		for _, s := range stops[:len(stops)-1] {
			points = append(points, latLng(s.Lat, s.Lng))
		}
		b.WriteString("&waypoints=" + url.QueryEscape(strings.Join(points, "|")))
	}
	b.WriteString("&travelmode=driving")
	return b.String()
}

func latLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
