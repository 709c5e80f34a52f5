package diagnosis

import "strings"

// Tier is the coarse urgency classification shown to the user.
type Tier string

const (
	TierCritical Tier = "CRITICAL"
	TierWarning  Tier = "WARNING"
	TierSuccess  Tier = "SUCCESS"
)

// DefaultUrgency is assumed when a condition carries no urgency tag.
const DefaultUrgency = "medium"

// Urgency is the display form of a tier.
type Urgency struct {
	Tier  Tier   `json:"tier"`
	Color string `json:"color"`
	Label string `json:"label"`
}

var urgencies = map[Tier]Urgency{
	TierCritical: {Tier: TierCritical, Color: "#DC2626", Label: "URGENT - Immediate Doctor Visit Required"},
	TierWarning:  {Tier: TierWarning, Color: "#F59E0B", Label: "HIGH - Consult Doctor Soon"},
	TierSuccess:  {Tier: TierSuccess, Color: "#10B981", Label: "MODERATE - Monitor Symptoms"},
}

// Classify maps an urgency tag to its tier. Unknown and empty tags fall
// into the default tier.
func Classify(tag string) Urgency {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "immediate", "critical":
		return urgencies[TierCritical]
	case "high":
		return urgencies[TierWarning]
	default:
		return urgencies[TierSuccess]
	}
}

// UrgencyOf classifies the consult urgency of a condition.
func UrgencyOf(c Condition) Urgency {
	tag := c.ConsultDoctor.Urgency
	if tag == "" {
		tag = DefaultUrgency
	}
	return Classify(tag)
}
