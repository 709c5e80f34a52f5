package consultation

import (
	"time"

	"github.com/google/uuid"

	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/facility"
)

// Source says how the symptoms were provided.
type Source string

const (
	SourceText      Source = "text"
	SourceSelection Source = "selection"
	SourceAudio     Source = "audio"
)

// DetectedSymptom is a symptom label the consultation reasoned over.
// Confidence is the extraction explicitness score in [0, 1]; it is 1 for
// symptoms picked from the list.
type DetectedSymptom struct {
	Label      string  `json:"label"`
	Phrase     string  `json:"phrase,omitempty"`
	Severe     bool    `json:"severe,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Request is the input of an assessment run.
type Request struct {
	Text          string          `json:"text"`
	Symptoms      []string        `json:"symptoms"`
	City          string          `json:"city"`
	Lat           *float64        `json:"lat"`
	Lon           *float64        `json:"lon"`
	MaxDistanceKm float64         `json:"max_distance_km"`
	SortBy        facility.SortBy `json:"sort_by"`
}

// Location returns the caller position when both coordinates are set.
func (r Request) Location() *facility.Coordinates {
	if r.Lat == nil || r.Lon == nil {
		return nil
	}
	return &facility.Coordinates{Lat: *r.Lat, Lon: *r.Lon}
}

// Consultation is the aggregate root: one symptom check with everything
// derived from it.
type Consultation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Source    Source    `json:"source" db:"source"`
	InputText string    `json:"input_text,omitempty" db:"input_text"`

	Symptoms []DetectedSymptom        `json:"symptoms" db:"symptoms"`
	Matches  []diagnosis.SymptomMatch `json:"matches" db:"matches"`

	// Set only when at least one condition matched.
	Urgency         *diagnosis.Urgency `json:"urgency,omitempty" db:"urgency"`
	Specializations []string           `json:"specializations,omitempty" db:"specializations"`
	Facilities      []facility.Result  `json:"facilities" db:"facilities"`

	City     string                `json:"city,omitempty" db:"city"`
	Location *facility.Coordinates `json:"location,omitempty" db:"location"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TopMatch returns the highest ranked condition, if any.
func (c *Consultation) TopMatch() (diagnosis.SymptomMatch, bool) {
	if len(c.Matches) == 0 {
		return diagnosis.SymptomMatch{}, false
	}
	return c.Matches[0], true
}

// Labels returns the symptom labels in order.
func (c *Consultation) Labels() []string {
	out := make([]string, len(c.Symptoms))
	for i, s := range c.Symptoms {
		out[i] = s.Label
	}
	return out
}

// IsCritical reports whether the top match needs immediate care.
func (c *Consultation) IsCritical() bool {
	return c.Urgency != nil && c.Urgency.Tier == diagnosis.TierCritical
}
