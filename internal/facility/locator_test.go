package facility

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func ptr(v float64) *float64 { return &v }

func testFacilities() []Facility {
	return []Facility{
		{ID: "h1", Name: "City General", City: "Pune", Lat: ptr(18.5204), Lon: ptr(73.8567), Rating: 4.1,
			Specializations: []string{"General Medicine", "Emergency"}, Phone: "+91 20 1234 5678", Address: "1 Main Rd"},
		{ID: "h2", Name: "Gastro Care", City: "Pune", Lat: ptr(18.5600), Lon: ptr(73.8000), Rating: 4.8,
			Specializations: []string{"Gastroenterology"}},
		{ID: "h3", Name: "Liver Institute", City: "Mumbai", Lat: ptr(19.0760), Lon: ptr(72.8777), Rating: 4.5,
			Specializations: []string{"Hepatology", "Gastroenterology"}},
		{ID: "h4", Name: "Rural Clinic", City: "Pune", Rating: 3.2,
			Specializations: []string{"general medicine"}, Address: "Village Rd"},
	}
}

func testSpecs() SpecializationMap {
	return SpecializationMap{
		"Cholera":     {"Gastroenterology", "Emergency"},
		"Hepatitis A": {"Hepatology"},
		"Rare":        {"Tropical Medicine"},
	}
}

func newTestLocator() *Locator {
	return NewLocator(testFacilities(), testSpecs(), Config{}, zerolog.Nop())
}

func ids(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSpecializations(t *testing.T) {
	l := newTestLocator()
	if got := l.Specializations("Cholera"); len(got) != 2 {
		t.Errorf("expected 2 specializations, got %v", got)
	}
	if got := l.Specializations("cholera"); len(got) != 2 {
		t.Errorf("expected case-insensitive lookup, got %v", got)
	}
	if got := l.Specializations("Typhoid"); len(got) != 1 || got[0] != DefaultSpecialization {
		t.Errorf("expected default specialization, got %v", got)
	}
}

func TestFindNearby_CityFilter(t *testing.T) {
	l := newTestLocator()
	got := l.FindNearby(Query{Condition: "Cholera", City: "pune"})
	if !equalIDs(ids(got), []string{"h1", "h2"}) {
		t.Errorf("expected Pune cholera facilities, got %v", ids(got))
	}
	for _, r := range got {
		if r.DistanceKm != nil || r.TravelTime != nil {
			t.Errorf("%s: expected nil distance without user coordinates", r.ID)
		}
	}
}

func TestFindNearby_UnknownCityFallsBack(t *testing.T) {
	l := newTestLocator()
	withCity := l.FindNearby(Query{Condition: "Hepatitis A", City: "Atlantis"})
	without := l.FindNearby(Query{Condition: "Hepatitis A"})
	if len(withCity) < len(without) {
		t.Errorf("city fallback returned fewer results: %v vs %v", ids(withCity), ids(without))
	}
	if !equalIDs(ids(withCity), []string{"h3"}) {
		t.Errorf("expected hepatology facility, got %v", ids(withCity))
	}
}

func TestFindNearby_SpecializationFallsBack(t *testing.T) {
	l := newTestLocator()
	got := l.FindNearby(Query{Condition: "Rare", City: "Mumbai"})
	if !equalIDs(ids(got), []string{"h3"}) {
		t.Errorf("expected city set when no specialization matches, got %v", ids(got))
	}
}

func TestFindNearby_DefaultSpecializationCaseInsensitive(t *testing.T) {
	l := newTestLocator()
	got := l.FindNearby(Query{Condition: "Typhoid", City: "Pune"})
	if !equalIDs(ids(got), []string{"h1", "h4"}) {
		t.Errorf("expected general medicine facilities, got %v", ids(got))
	}
}

func TestFindNearby_DistanceCutoffWithoutCity(t *testing.T) {
	l := newTestLocator()
	user := &Coordinates{Lat: 18.52, Lon: 73.85}
	got := l.FindNearby(Query{Condition: "Cholera", User: user, SortBy: SortByDistance})
	// Mumbai is ~120 km away and h4 has no coordinates.
	if !equalIDs(ids(got), []string{"h1", "h2"}) {
		t.Fatalf("expected nearby Pune facilities, got %v", ids(got))
	}
	if got[0].DistanceKm == nil || got[0].TravelTime == nil {
		t.Fatalf("expected distance for %s", got[0].ID)
	}
	if *got[0].TravelTime != "1 mins" && *got[0].TravelTime != "0 mins" {
		t.Errorf("unexpected travel time %q", *got[0].TravelTime)
	}

	far := l.FindNearby(Query{Condition: "Hepatitis A", User: user, MaxDistanceKm: 500})
	if !equalIDs(ids(far), []string{"h3"}) {
		t.Errorf("expected larger cutoff to keep Mumbai, got %v", ids(far))
	}
}

func TestFindNearby_CutoffNotAppliedWithCity(t *testing.T) {
	l := newTestLocator()
	user := &Coordinates{Lat: 18.52, Lon: 73.85}
	got := l.FindNearby(Query{Condition: "Hepatitis A", City: "Mumbai", User: user, MaxDistanceKm: 10})
	if !equalIDs(ids(got), []string{"h3"}) {
		t.Errorf("expected city search to ignore cutoff, got %v", ids(got))
	}
}

func TestFindNearby_UnknownDistanceNeverCut(t *testing.T) {
	l := newTestLocator()
	user := &Coordinates{Lat: 18.52, Lon: 73.85}
	got := l.FindNearby(Query{Condition: "Typhoid", User: user, MaxDistanceKm: 1, SortBy: SortByDistance})
	if !equalIDs(ids(got), []string{"h1", "h4"}) {
		t.Fatalf("expected h1 then coordinate-less h4, got %v", ids(got))
	}
	if got[1].DistanceKm != nil {
		t.Errorf("expected nil distance for h4")
	}
}

func TestFindNearby_MalformedCoordinates(t *testing.T) {
	facilities := append(testFacilities(), Facility{
		ID: "bad", City: "Pune", Lat: ptr(123), Lon: ptr(73.8), Specializations: []string{"General Medicine"},
	})
	l := NewLocator(facilities, testSpecs(), Config{}, zerolog.Nop())
	user := &Coordinates{Lat: 18.52, Lon: 73.85}
	got := l.FindNearby(Query{Condition: "Typhoid", User: user, SortBy: SortByDistance})
	if !equalIDs(ids(got), []string{"h1", "h4", "bad"}) {
		t.Fatalf("expected malformed facility kept with unknown distance, got %v", ids(got))
	}
	if got[2].DistanceKm != nil || got[2].TravelTime != nil {
		t.Errorf("expected nil distance for malformed facility")
	}

	got = l.FindNearby(Query{Condition: "Typhoid", User: &Coordinates{Lat: math.NaN(), Lon: 0}})
	for _, r := range got {
		if r.DistanceKm != nil {
			t.Errorf("%s: invalid user coordinates should disable distances", r.ID)
		}
	}
}

func TestFindNearby_SortByDistance(t *testing.T) {
	l := newTestLocator()
	// Closer to Gastro Care than to City General.
	user := &Coordinates{Lat: 18.565, Lon: 73.79}
	got := l.FindNearby(Query{Condition: "Cholera", City: "Pune", User: user, SortBy: SortByDistance})
	if !equalIDs(ids(got), []string{"h2", "h1"}) {
		t.Fatalf("expected distance order, got %v", ids(got))
	}
	if *got[0].DistanceKm > *got[1].DistanceKm {
		t.Errorf("distances out of order: %v > %v", *got[0].DistanceKm, *got[1].DistanceKm)
	}
}

func TestFindNearby_DefaultSortIsDistance(t *testing.T) {
	facilities := []Facility{
		{ID: "far", Name: "Far", Lat: ptr(1.3), Lon: ptr(0), Specializations: []string{DefaultSpecialization}},
		{ID: "near", Name: "Near", Lat: ptr(1.01), Lon: ptr(0), Specializations: []string{DefaultSpecialization}},
	}
	l := NewLocator(facilities, nil, Config{}, zerolog.Nop())

	got := l.FindNearby(Query{Condition: "Flu", User: &Coordinates{Lat: 1, Lon: 0}})
	if !equalIDs(ids(got), []string{"near", "far"}) {
		t.Errorf("expected nearest first without an explicit sort, got %v", ids(got))
	}
}

func TestSpecializations_CaseCollision(t *testing.T) {
	specs := SpecializationMap{
		"cholera": {"Emergency"},
		"CHOLERA": {"Gastroenterology"},
	}
	for i := 0; i < 20; i++ {
		l := NewLocator(nil, specs, Config{}, zerolog.Nop())
		if got := l.Specializations("Cholera"); len(got) != 1 || got[0] != "Gastroenterology" {
			t.Fatalf("expected the first key in sorted order to win, got %v", got)
		}
	}
}

func TestFindNearby_SortByRating(t *testing.T) {
	l := newTestLocator()
	got := l.FindNearby(Query{Condition: "Cholera", City: "Pune", SortBy: SortByRating})
	if !equalIDs(ids(got), []string{"h2", "h1"}) {
		t.Errorf("expected rating order, got %v", ids(got))
	}
}

func TestFindNearby_EmptyCatalog(t *testing.T) {
	l := NewLocator(nil, nil, Config{}, zerolog.Nop())
	if got := l.FindNearby(Query{Condition: "Cholera", City: "Pune"}); len(got) != 0 {
		t.Errorf("expected no results, got %v", ids(got))
	}
}

func TestTravelTime(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0, "0 mins"},
		{7.5, "15 mins"},
		{29.9, "59 mins"},
		{30, "1 hr"},
		{40, "1 hr 20 mins"},
		{75, "2 hr 30 mins"},
		{math.Inf(1), "N/A"},
	}
	for _, tt := range tests {
		if got := TravelTime(tt.km, 30); got != tt.want {
			t.Errorf("TravelTime(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}

func TestDistance(t *testing.T) {
	// Pune to Mumbai is roughly 120 km great-circle.
	km, err := Distance(Coordinates{18.5204, 73.8567}, Coordinates{19.0760, 72.8777})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if km < 115 || km > 125 {
		t.Errorf("unexpected distance %.2f", km)
	}
	if _, err := Distance(Coordinates{91, 0}, Coordinates{0, 0}); err == nil {
		t.Error("expected error for invalid latitude")
	}
}

func TestDirectionsAndCallURL(t *testing.T) {
	f := testFacilities()[0]
	if got := DirectionsURL(f, nil); got != "https://www.google.com/maps/search/?api=1&query=18.5204,73.8567" {
		t.Errorf("unexpected search url %s", got)
	}
	user := &Coordinates{Lat: 18.5, Lon: 73.8}
	if got := DirectionsURL(f, user); got != "https://www.google.com/maps/dir/18.5,73.8/18.5204,73.8567" {
		t.Errorf("unexpected directions url %s", got)
	}
	if got := DirectionsURL(testFacilities()[3], user); got != "https://www.google.com/maps/search/?api=1&query=Village+Rd%2C+Pune" {
		t.Errorf("unexpected address url %s", got)
	}
	if got := CallURL(f.Phone); got != "tel:+912012345678" {
		t.Errorf("unexpected call url %s", got)
	}
	if got := CallURL(""); got != "" {
		t.Errorf("expected empty call url, got %s", got)
	}
}

func TestCities(t *testing.T) {
	l := newTestLocator()
	got := l.Cities()
	if len(got) != 2 || got[0] != "Mumbai" || got[1] != "Pune" {
		t.Errorf("unexpected cities %v", got)
	}
}
