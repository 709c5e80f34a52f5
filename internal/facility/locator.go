package facility

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const earthRadiusKm = 6371.0

// Config contains tuning for the locator.
type Config struct {
	MaxDistanceKm float64 // cutoff for searches without a city
	AvgSpeedKmh   float64 // average urban travel speed for ETAs
}

// Locator filters and ranks facilities for a condition. The catalog is
// read-only after construction so a Locator is safe for concurrent use.
type Locator struct {
	facilities []Facility
	specs      SpecializationMap
	specsFold  map[string][]string // lowercased keys
	config     Config
	logger     zerolog.Logger
}

// NewLocator creates a locator over a facility catalog.
func NewLocator(facilities []Facility, specs SpecializationMap, config Config, logger zerolog.Logger) *Locator {
	if config.MaxDistanceKm <= 0 {
		config.MaxDistanceKm = 50.0
	}
	if config.AvgSpeedKmh <= 0 {
		config.AvgSpeedKmh = 30.0
	}
	if specs == nil {
		specs = SpecializationMap{}
	}

	// On keys equal up to case, the alphabetically first spelling wins.
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	fold := make(map[string][]string, len(specs))
	for _, name := range names {
		key := strings.ToLower(name)
		if _, ok := fold[key]; !ok && len(specs[name]) > 0 {
			fold[key] = specs[name]
		}
	}

	return &Locator{
		facilities: facilities,
		specs:      specs,
		specsFold:  fold,
		config:     config,
		logger:     logger.With().Str("component", "facility_locator").Logger(),
	}
}

// Len reports the catalog size.
func (l *Locator) Len() int { return len(l.facilities) }

// Specializations returns the specializations relevant to a condition.
func (l *Locator) Specializations(condition string) []string {
	if s, ok := l.specs[condition]; ok && len(s) > 0 {
		return s
	}
	if s, ok := l.specsFold[strings.ToLower(condition)]; ok {
		return s
	}
	return []string{DefaultSpecialization}
}

// FindNearby returns the facilities suited to q.Condition.
//
// A city filter or specialization filter that leaves nothing falls back to
// its input set, so the result is empty only when the catalog is. The
// distance cutoff applies only to searches without a city, and never
// drops facilities whose distance is unknown.
func (l *Locator) FindNearby(q Query) []Result {
	maxDistance := q.MaxDistanceKm
	if maxDistance <= 0 {
		maxDistance = l.config.MaxDistanceKm
	}

	user := q.User
	if user != nil && !user.Valid() {
		l.logger.Warn().Float64("lat", user.Lat).Float64("lon", user.Lon).Msg("ignoring invalid user coordinates")
		user = nil
	}

	applyCutoff := false
	var candidates []Facility
	if strings.TrimSpace(q.City) != "" {
		candidates = l.filterByCity(q.City)
	} else {
		candidates = l.facilities
		applyCutoff = true
	}
	candidates = filterBySpecialization(candidates, l.Specializations(q.Condition))

	results := make([]Result, 0, len(candidates))
	for _, f := range candidates {
		r := Result{
			distance:      math.Inf(1),
			Facility:      f,
			DirectionsURL: DirectionsURL(f, user),
			CallURL:       CallURL(f.Phone),
		}
		if user != nil {
			if pos, ok := f.Coordinates(); ok {
				km, err := Distance(*user, pos)
				if err != nil {
					l.logger.Warn().Err(err).Str("facility_id", f.ID).Msg("distance unknown")
				} else {
					if applyCutoff && km > maxDistance {
						continue
					}
					rounded := math.Round(km*100) / 100
					eta := l.TravelTime(km)
					r.distance = km
					r.DistanceKm = &rounded
					r.TravelTime = &eta
				}
			}
		}
		results = append(results, r)
	}

	switch q.SortBy {
	case SortByDistance, "":
		if user != nil {
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].distance < results[j].distance
			})
		}
	case SortByRating:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Rating > results[j].Rating
		})
	}
	return results
}

// Cities returns the distinct facility cities in alphabetical order.
func (l *Locator) Cities() []string {
	seen := make(map[string]bool)
	cities := []string{}
	for _, f := range l.facilities {
		if f.City == "" || seen[f.City] {
			continue
		}
		seen[f.City] = true
		cities = append(cities, f.City)
	}
	sort.Strings(cities)
	return cities
}

// TravelTime formats the estimated drive time for a distance, e.g.
// "15 mins", "1 hr" or "1 hr 20 mins".
func (l *Locator) TravelTime(distanceKm float64) string {
	return TravelTime(distanceKm, l.config.AvgSpeedKmh)
}

// TravelTime formats the drive time for distanceKm at speedKmh.
func TravelTime(distanceKm, speedKmh float64) string {
	if math.IsInf(distanceKm, 0) || math.IsNaN(distanceKm) || speedKmh <= 0 {
		return "N/A"
	}
	minutes := distanceKm / speedKmh * 60
	if minutes < 60 {
		return fmt.Sprintf("%d mins", int(minutes))
	}
	hours := int(minutes / 60)
	rest := int(math.Mod(minutes, 60))
	if rest > 0 {
		return fmt.Sprintf("%d hr %d mins", hours, rest)
	}
	return fmt.Sprintf("%d hr", hours)
}

// Distance returns the great-circle distance in kilometers using the
// haversine formula.
func Distance(from, to Coordinates) (float64, error) {
	if !from.Valid() {
		return math.Inf(1), fmt.Errorf("invalid origin %v,%v", from.Lat, from.Lon)
	}
	if !to.Valid() {
		return math.Inf(1), fmt.Errorf("invalid destination %v,%v", to.Lat, to.Lon)
	}

	dLat := toRadians(to.Lat - from.Lat)
	dLon := toRadians(to.Lon - from.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(from.Lat))*math.Cos(toRadians(to.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c, nil
}

// DirectionsURL links to map directions to the facility, from the user
// when their position is known. Facilities without coordinates get an
// address search.
func DirectionsURL(f Facility, user *Coordinates) string {
	pos, ok := f.Coordinates()
	if !ok || !pos.Valid() {
		query := strings.TrimSpace(f.Address + ", " + f.City)
		return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(query)
	}
	if user != nil {
		return fmt.Sprintf("https://www.google.com/maps/dir/%s,%s/%s,%s",
			formatCoord(user.Lat), formatCoord(user.Lon), formatCoord(pos.Lat), formatCoord(pos.Lon))
	}
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%s,%s", formatCoord(pos.Lat), formatCoord(pos.Lon))
}

// CallURL returns a tel: link for phone, or "" when there is no number.
func CallURL(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	if phone == "" {
		return ""
	}
	return "tel:" + phone
}

func (l *Locator) filterByCity(city string) []Facility {
	var filtered []Facility
	for _, f := range l.facilities {
		if strings.EqualFold(strings.TrimSpace(f.City), strings.TrimSpace(city)) {
			filtered = append(filtered, f)
		}
	}
	if len(filtered) == 0 {
		return l.facilities
	}
	return filtered
}

func filterBySpecialization(facilities []Facility, required []string) []Facility {
	if len(required) == 0 {
		return facilities
	}
	var filtered []Facility
	for _, f := range facilities {
		if hasSpecialization(f, required) {
			filtered = append(filtered, f)
		}
	}
	if len(filtered) == 0 {
		return facilities
	}
	return filtered
}

func hasSpecialization(f Facility, required []string) bool {
	for _, have := range f.Specializations {
		for _, want := range required {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
