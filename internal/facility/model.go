package facility

import "math"

// DefaultSpecialization is required when a condition has no mapping.
const DefaultSpecialization = "General Medicine"

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether c is a finite position on the globe.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Facility is a care location from the facility catalog.
type Facility struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	City            string   `json:"city"`
	Address         string   `json:"address"`
	Lat             *float64 `json:"lat,omitempty"`
	Lon             *float64 `json:"lon,omitempty"`
	Phone           string   `json:"phone"`
	Rating          float64  `json:"rating"`
	Specializations []string `json:"specializations"`
}

// Coordinates returns the facility position when both parts are present.
func (f Facility) Coordinates() (Coordinates, bool) {
	if f.Lat == nil || f.Lon == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *f.Lat, Lon: *f.Lon}, true
}

// SpecializationMap maps a condition name to the specializations that
// treat it.
type SpecializationMap map[string][]string

// Result is a facility ranked for a query. DistanceKm and TravelTime are
// nil when the distance is unknown.
type Result struct {
	Facility
	DistanceKm    *float64 `json:"distance_km"`
	TravelTime    *string  `json:"travel_time"`
	DirectionsURL string   `json:"directions_url"`
	CallURL       string   `json:"call_url,omitempty"`

	distance float64 // unrounded; +Inf when unknown
}

// SortBy selects the result ordering.
type SortBy string

const (
	SortByDistance SortBy = "distance"
	SortByRating   SortBy = "rating"
)

// Query describes a nearby-facility search. User is nil when the caller's
// location could not be resolved; City is empty when no city was chosen.
type Query struct {
	Condition     string
	User          *Coordinates
	City          string
	MaxDistanceKm float64
	SortBy        SortBy
}
