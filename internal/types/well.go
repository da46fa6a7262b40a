package types

import (
	"math"
	"time"
)

// Coordinate bounds.
const (
	MinLat        = -90.0
	MaxLat        = 90.0
	MinLng        = -180.0
	MaxLng        = 180.0
	MaxNameLength = 200
)

// GeoPoint is a WGS84 position in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// Well is the registered record for one groundwater well.
type Well struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Name          string     `json:"name"`
	PanchayatName string     `json:"panchayat_name,omitempty"`
	VillageName   string     `json:"village_name,omitempty"`
	ContactPhone  string     `json:"contact_phone,omitempty"`
	Lat           *float64   `json:"lat"`
	Lng           *float64   `json:"lng"`
	Status        WellStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Position returns the well's coordinates, or false when either is missing or
// not a finite number.
func (w Well) Position() (GeoPoint, bool) {
	if w.Lat == nil || w.Lng == nil {
		return GeoPoint{}, false
	}
	lat, lng := *w.Lat, *w.Lng
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: lat, Lng: lng}, true
}

// ValidCoordinates reports whether lat/lng fall inside WGS84 bounds.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= MinLat && lat <= MaxLat && lng >= MinLng && lng <= MaxLng
}
