// Package route plans a greedy nearest-neighbour visiting order over wells.
//
// The planner is an O(n^2) heuristic meant for tens of wells. It does not
// look for an optimal tour.
package route

import (
	"math"

	"wellwatch/internal/types"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// DefaultAverageSpeedKmh converts distance into a rough travel time.
const DefaultAverageSpeedKmh = 40.0

// OriginSource tells where the starting point came from.
type OriginSource string

const (
	OriginDevice   OriginSource = "device"
	OriginCentroid OriginSource = "centroid"
)

// ExclusionReason explains why a well is not part of the route.
type ExclusionReason string

const (
	ReasonDeselected         ExclusionReason = "deselected"
	ReasonMissingCoordinates ExclusionReason = "missing_coordinates"
)

// Selection narrows the candidate wells. A non-empty Include keeps only the
// listed IDs; Exclude then removes IDs.
type Selection struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Stop is one visit in planned order.
type Stop struct {
	WellID                 string  `json:"well_id"`
	Name                   string  `json:"name"`
	Lat                    float64 `json:"lat"`
	Lng                    float64 `json:"lng"`
	DistanceFromPreviousKm float64 `json:"distance_from_previous_km"`
}

// Excluded is a well left out of the plan.
type Excluded struct {
	WellID string          `json:"well_id"`
	Name   string          `json:"name"`
	Reason ExclusionReason `json:"reason"`
}

// Plan is the planner's output.
type Plan struct {
	Origin           *types.GeoPoint `json:"origin"`
	OriginSource     OriginSource    `json:"origin_source,omitempty"`
	Stops            []Stop          `json:"stops"`
	TotalKm          float64         `json:"total_km"`
	EstimatedMinutes float64         `json:"estimated_minutes"`
	Excluded         []Excluded      `json:"excluded"`
	DirectionsURL    string          `json:"directions_url,omitempty"`
}

// Planner orders wells into a route.
type Planner struct {
	AverageSpeedKmh float64
}

// NewPlanner returns a Planner that estimates travel time at averageSpeedKmh.
func NewPlanner(averageSpeedKmh float64) Planner {
	return Planner{AverageSpeedKmh: averageSpeedKmh}
}

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b types.GeoPoint) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

type candidate struct {
	well types.Well
	pos  types.GeoPoint
}

// Plan orders the selected wells starting at origin. A nil origin falls back
// to the centroid of the selected wells. Equidistant candidates resolve to the
// earlier well in input order. Wells without usable coordinates and
// deselected wells are reported in Plan.Excluded.
func (p Planner) Plan(wells []types.Well, origin *types.GeoPoint, sel Selection) Plan {
	include := toSet(sel.Include)
	exclude := toSet(sel.Exclude)

	plan := Plan{Stops: []Stop{}, Excluded: []Excluded{}}
	remaining := make([]candidate, 0, len(wells))
	for _, w := range wells {
		_, deselected := exclude[w.ID]
		if len(include) > 0 {
			if _, ok := include[w.ID]; !ok {
				deselected = true
			}
		}
		if deselected {
			plan.Excluded = append(plan.Excluded, Excluded{WellID: w.ID, Name: w.Name, Reason: ReasonDeselected})
			continue
		}
		pos, ok := w.Position()
		if !ok {
			plan.Excluded = append(plan.Excluded, Excluded{WellID: w.ID, Name: w.Name, Reason: ReasonMissingCoordinates})
			continue
		}
		remaining = append(remaining, candidate{well: w, pos: pos})
	}

	if origin != nil {
		o := *origin
		plan.Origin = &o
		plan.OriginSource = OriginDevice
	} else if len(remaining) > 0 {
		c := centroid(remaining)
		plan.Origin = &c
		plan.OriginSource = OriginCentroid
	}
	if len(remaining) == 0 {
		return plan
	}

	current := *plan.Origin
	for len(remaining) > 0 {
		best, bestDist := 0, Haversine(current, remaining[0].pos)
		for i := 1; i < len(remaining); i++ {
			if d := Haversine(current, remaining[i].pos); d < bestDist {
				best, bestDist = i, d
			}
		}

		next := remaining[best]
		plan.Stops = append(plan.Stops, Stop{
			WellID:                 next.well.ID,
			Name:                   next.well.Name,
			Lat:                    next.pos.Lat,
			Lng:                    next.pos.Lng,
			DistanceFromPreviousKm: bestDist,
		})
		plan.TotalKm += bestDist
		current = next.pos
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	plan.EstimatedMinutes = plan.TotalKm / p.speed() * 60
	return plan
}

func (p Planner) speed() float64 {
	if p.AverageSpeedKmh <= 0 {
		return DefaultAverageSpeedKmh
	}
	return p.AverageSpeedKmh
}

func centroid(cs []candidate) types.GeoPoint {
	var lat, lng float64
	for _, c := range cs {
		lat += c.pos.Lat
		lng += c.pos.Lng
	}
	n := float64(len(cs))
	return types.GeoPoint{Lat: lat / n, Lng: lng / n}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
