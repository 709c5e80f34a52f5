package diagnosis

import (
	"math"
	"sort"
	"strings"
)

// Match scores every condition in catalog against the observed symptom
// labels and returns the conditions with at least one match, highest
// confidence first. Conditions with equal confidence keep catalog order.
//
// An observed label matches a condition symptom when the symptom text
// contains the label, ignoring case. Each condition symptom is claimed by
// at most one label; an exact match is preferred over a containing one so
// that a label is not consumed by a longer symptom that another label
// names exactly.
func Match(observed []string, catalog []Condition) []SymptomMatch {
	labels := normalizeLabels(observed)
	results := []SymptomMatch{}
	if len(labels) == 0 {
		return results
	}

	for _, c := range catalog {
		if len(c.Symptoms) == 0 {
			continue
		}
		lowered := make([]string, len(c.Symptoms))
		for i, s := range c.Symptoms {
			lowered[i] = strings.ToLower(s.Symptom)
		}

		claimed := make([]bool, len(c.Symptoms))
		var matched []ConditionSymptom
		for _, label := range labels {
			i := claim(label, lowered, claimed)
			if i < 0 {
				continue
			}
			claimed[i] = true
			matched = append(matched, c.Symptoms[i])
		}
		if len(matched) == 0 {
			continue
		}

		results = append(results, SymptomMatch{
			Disease:         c,
			MatchedSymptoms: matched,
			Confidence:      roundTenth(float64(len(matched)) / float64(len(c.Symptoms)) * 100),
			MatchCount:      len(matched),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

func claim(label string, symptoms []string, claimed []bool) int {
	for i, s := range symptoms {
		if !claimed[i] && s == label {
			return i
		}
	}
	for i, s := range symptoms {
		if !claimed[i] && strings.Contains(s, label) {
			return i
		}
	}
	return -1
}

// normalizeLabels lowercases, trims and de-duplicates labels, dropping
// empty ones which would otherwise match every symptom.
func normalizeLabels(observed []string) []string {
	seen := make(map[string]bool, len(observed))
	out := make([]string, 0, len(observed))
	for _, o := range observed {
		l := strings.ToLower(strings.TrimSpace(o))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// roundTenth rounds to one decimal, halves to even (1/16 gives 6.2).
func roundTenth(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
