package symptom

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	negationLookbehind = 25
	modifierWindow     = 32
	mildMaxDistance    = 22
)

var segmentSplitter = regexp.MustCompile(`[;,]|\band\b`)

// Mention is an accepted symptom mention found in free text.
type Mention struct {
	Label   string `json:"label"`
	Phrase  string `json:"phrase"`
	Segment string `json:"segment"`
	Severe  bool   `json:"severe"`
}

// Extractor turns free-text descriptions into symptom labels. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	rules Rules
}

// NewExtractor creates an extractor over rules. A nil lexicon falls back
// to the built-in one.
func NewExtractor(rules Rules) *Extractor {
	if rules.Lexicon == nil {
		rules.Lexicon = DefaultLexicon()
	}
	return &Extractor{rules: rules}
}

// Lexicon returns the lexicon the extractor matches against.
func (e *Extractor) Lexicon() *Lexicon { return e.rules.Lexicon }

// Extract returns the symptom labels mentioned in text, in the order they
// were first detected. Negated and mild mentions are dropped.
func (e *Extractor) Extract(text string) []string {
	mentions := e.ExtractMentions(text)
	labels := make([]string, len(mentions))
	for i, m := range mentions {
		labels[i] = m.Label
	}
	return labels
}

// ExtractMentions is Extract with the phrase and segment that produced
// each label.
func (e *Extractor) ExtractMentions(text string) []Mention {
	normalized := normalize(text)
	if normalized == "" {
		return []Mention{}
	}

	mentions := []Mention{}
	seen := make(map[string]bool)
	for _, segment := range Segment(normalized) {
		for _, entry := range e.rules.Lexicon.entries {
			for _, phrase := range entry.Phrases {
				if !strings.Contains(segment, phrase) {
					continue
				}
				if e.isNegated(segment, phrase) {
					continue
				}
				mild, severe := e.intensity(segment, phrase)
				if mild {
					continue
				}
				if !seen[entry.Label] {
					seen[entry.Label] = true
					mentions = append(mentions, Mention{
						Label:   entry.Label,
						Phrase:  phrase,
						Segment: segment,
						Severe:  severe,
					})
				}
				break
			}
		}
	}
	return mentions
}

// Confidence scores how explicitly label is mentioned in text: the share
// of the label's phrases present anywhere in the text. Negation and
// intensity are ignored.
func (e *Extractor) Confidence(text, label string) float64 {
	phrases := e.rules.Lexicon.Phrases(label)
	if len(phrases) == 0 {
		return 0
	}
	normalized := normalize(text)
	count := 0
	for _, p := range phrases {
		if strings.Contains(normalized, p) {
			count++
		}
	}
	return min(float64(count)/float64(len(phrases)), 1.0)
}

// Segment splits normalized text into clauses on semicolons, commas and
// the word "and". The whole text is returned as a single segment when
// splitting leaves nothing.
func Segment(normalized string) []string {
	var segments []string
	for _, part := range segmentSplitter.Split(normalized, -1) {
		if p := strings.TrimSpace(part); p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) == 0 {
		return []string{normalized}
	}
	return segments
}

// normalize folds compatibility forms (full-width letters, ligatures)
// before lowercasing so they match the ASCII lexicon.
func normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFKC.String(text)))
}

// isNegated looks for a negation trigger in the characters leading up to
// the phrase's first occurrence, phrase included.
func (e *Extractor) isNegated(segment, phrase string) bool {
	runes := []rune(segment)
	pos := runeIndex(segment, phrase)
	if pos < 0 {
		return false
	}
	end := pos + runeLen(phrase)
	window := string(runes[max(0, pos-negationLookbehind):end])
	for _, n := range e.rules.Negations {
		if strings.Contains(window, n) {
			return true
		}
	}
	return false
}

// intensity reports whether a mild modifier sits close to the phrase, and
// whether a severe modifier appears in the surrounding window.
func (e *Extractor) intensity(segment, phrase string) (mild, severe bool) {
	runes := []rune(segment)
	pos := runeIndex(segment, phrase)
	if pos < 0 {
		return false, false
	}
	start := max(0, pos-modifierWindow)
	end := min(len(runes), pos+runeLen(phrase)+modifierWindow)
	context := string(runes[start:end])
	phrasePos := runeIndex(context, phrase)

	for _, m := range e.rules.Modifiers.Mild {
		mpos := runeIndex(context, m)
		if mpos < 0 {
			continue
		}
		if abs(mpos-phrasePos) < mildMaxDistance {
			return true, false
		}
	}
	for _, s := range e.rules.Modifiers.Severe {
		if strings.Contains(context, s) {
			return false, true
		}
	}
	return false, false
}

// runeIndex is strings.Index in characters rather than bytes.
func runeIndex(s, substr string) int {
	i := strings.Index(s, substr)
	if i < 0 {
		return -1
	}
	return runeLen(s[:i])
}

func runeLen(s string) int { return len([]rune(s)) }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
