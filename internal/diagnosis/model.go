package diagnosis

// ConditionSymptom is one expected symptom of a condition.
type ConditionSymptom struct {
	Symptom     string `json:"symptom"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

// HomeRemedy is a self-care suggestion attached to a condition.
type HomeRemedy struct {
	Remedy       string `json:"remedy"`
	Instructions string `json:"instructions"`
	Frequency    string `json:"frequency"`
}

// ConsultInfo says how urgently a doctor should be seen and why.
type ConsultInfo struct {
	Urgency   string `json:"urgency"`
	Reason    string `json:"reason"`
	Condition string `json:"condition,omitempty"`
}

// Condition is a catalog entry with its expected symptom profile.
type Condition struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Category      string             `json:"category"`
	Severity      string             `json:"severity"`
	Symptoms      []ConditionSymptom `json:"symptoms"`
	HomeRemedies  []HomeRemedy       `json:"homeRemedies"`
	ConsultDoctor ConsultInfo        `json:"consultDoctor"`
}

// SymptomMatch is a condition scored against an observed symptom set.
// Confidence is a percentage in [0, 100] with one decimal.
type SymptomMatch struct {
	Disease         Condition          `json:"disease"`
	MatchedSymptoms []ConditionSymptom `json:"matched_symptoms"`
	Confidence      float64            `json:"confidence"`
	MatchCount      int                `json:"match_count"`
}
