package symptom

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one canonical symptom label with the phrases that indicate it.
type Entry struct {
	Label   string   `yaml:"label" json:"label"`
	Phrases []string `yaml:"phrases" json:"phrases"`
}

// Lexicon is an ordered, read-only mapping from symptom label to phrases.
// Iteration order is the order the labels were authored in.
type Lexicon struct {
	entries []Entry
	index   map[string]int
}

// NewLexicon builds a lexicon from entries. Phrases are lowercased and
// de-duplicated per label; entries with an empty label are ignored and a
// repeated label has its phrases merged into the first occurrence.
func NewLexicon(entries []Entry) *Lexicon {
	l := &Lexicon{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		label := strings.TrimSpace(e.Label)
		if label == "" {
			continue
		}
		i, ok := l.index[label]
		if !ok {
			i = len(l.entries)
			l.index[label] = i
			l.entries = append(l.entries, Entry{Label: label})
		}
		l.entries[i].Phrases = appendPhrases(l.entries[i].Phrases, e.Phrases)
	}
	return l
}

func appendPhrases(dst, src []string) []string {
	seen := make(map[string]bool, len(dst)+len(src))
	for _, p := range dst {
		seen[p] = true
	}
	for _, p := range src {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		dst = append(dst, p)
	}
	return dst
}

// Labels returns the symptom labels in lexicon order.
func (l *Lexicon) Labels() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Label
	}
	return out
}

// Phrases returns the phrases for label, or nil if the label is unknown.
func (l *Lexicon) Phrases(label string) []string {
	i, ok := l.index[label]
	if !ok {
		return nil
	}
	return l.entries[i].Phrases
}

// Len reports the number of labels.
func (l *Lexicon) Len() int { return len(l.entries) }

// ModifierSet holds the intensity modifiers consulted during extraction.
type ModifierSet struct {
	Mild   []string `yaml:"mild"`
	Severe []string `yaml:"severe"`
}

// Rules bundles everything the extractor needs. It is built once at
// startup and shared read-only between requests.
type Rules struct {
	Lexicon   *Lexicon
	Modifiers ModifierSet
	Negations []string
}

// DefaultModifiers are the built-in intensity modifiers.
func DefaultModifiers() ModifierSet {
	return ModifierSet{
		Mild: []string{
			"mild", "slight", "slightly", "minor", "low-grade", "low grade",
			"little bit", "a bit", "bit of", "somewhat", "occasionally", "little",
		},
		Severe: []string{
			"severe", "intense", "extreme", "very bad", "terrible", "awful",
			"serious", "constant", "persistent", "chronic", "unbearable", "excruciating",
		},
	}
}

// DefaultNegations are the built-in negation triggers. The trailing space
// is significant: it keeps "no" from matching inside "nose" or "note".
func DefaultNegations() []string {
	return []string{"no ", "not ", "without ", "denies ", "deny ", "never ", "lack of "}
}

// DefaultLexicon returns the built-in symptom lexicon.
func DefaultLexicon() *Lexicon {
	return NewLexicon([]Entry{
		{"Diarrhea", []string{"diarrhea", "loose stool", "watery stool", "frequent stool", "runny stool", "upset stomach"}},
		{"Vomiting", []string{"vomit", "vomiting", "throwing up", "puke", "puking", "nausea and vomiting"}},
		{"Nausea", []string{"nausea", "nauseous", "queasy", "sick feeling", "feel sick"}},
		{"Fever", []string{"fever", "high temperature", "hot", "burning up", "temperature", "febrile"}},
		{"Dehydration", []string{
			"dehydration", "dehydrated", "thirsty", "dry mouth", "dizzy",
			"dizziness", "lightheaded", "light-headed", "light headed",
			"dry lips", "sunken eyes",
		}},
		{"Stomach cramps", []string{"stomach cramp", "stomach pain", "belly pain", "abdominal cramp", "tummy ache"}},
		{"Abdominal pain", []string{"abdominal pain", "stomach ache", "belly ache", "gut pain"}},
		{"Bloating", []string{"bloat", "bloating", "swollen belly", "gas", "gassy", "distended"}},
		{"Headache", []string{"headache", "head pain", "head hurts", "migraine"}},
		{"Fatigue", []string{"fatigue", "tired", "exhausted", "weak", "weakness", "no energy", "lethargy"}},
		{"Body pain", []string{"body pain", "body ache", "muscle pain", "joint pain", "aching"}},
		{"Leg cramps", []string{"leg cramp", "leg pain", "calf pain"}},
		{"Jaundice", []string{"jaundice", "yellow eyes", "yellow skin", "yellowish", "yellowing"}},
		{"Dark urine", []string{"dark urine", "brown urine", "tea colored urine", "dark pee"}},
		{"Loss of appetite", []string{"no appetite", "loss of appetite", "don't want to eat", "not hungry"}},
		{"Rash", []string{"rash", "skin rash", "red spots", "skin irritation"}},
		{"Rapid dehydration", []string{"rapid dehydration", "severe dehydration", "very dehydrated"}},
		{"Greasy stools", []string{"greasy stool", "oily stool", "fatty stool"}},
		{"Loose stools", []string{"loose stool", "soft stool"}},
		{"Whitish tongue coating", []string{"white tongue", "coated tongue", "whitish tongue"}},
	})
}

// DefaultRules returns the built-in lexicon, modifiers and negations.
func DefaultRules() Rules {
	return Rules{
		Lexicon:   DefaultLexicon(),
		Modifiers: DefaultModifiers(),
		Negations: DefaultNegations(),
	}
}

type rulesFile struct {
	Symptoms  []Entry      `yaml:"symptoms"`
	Modifiers *ModifierSet `yaml:"modifiers"`
	Negations []string     `yaml:"negations"`
}

// LoadRules reads a YAML rules file. Sections absent from the file keep
// their built-in defaults.
//
//	symptoms:
//	  - label: Fever
//	    phrases: [fever, febrile]
//	modifiers:
//	  mild: [mild]
//	  severe: [severe]
//	negations: ["no ", "not "]
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Rules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	rules := DefaultRules()
	if len(f.Symptoms) > 0 {
		rules.Lexicon = NewLexicon(f.Symptoms)
	}
	if f.Modifiers != nil {
		rules.Modifiers = ModifierSet{
			Mild:   lowerAll(f.Modifiers.Mild),
			Severe: lowerAll(f.Modifiers.Severe),
		}
	}
	if len(f.Negations) > 0 {
		// Not trimmed: trailing spaces are part of the trigger.
		negs := make([]string, 0, len(f.Negations))
		for _, n := range f.Negations {
			if n = strings.ToLower(n); strings.TrimSpace(n) != "" {
				negs = append(negs, n)
			}
		}
		rules.Negations = negs
	}
	return rules, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
