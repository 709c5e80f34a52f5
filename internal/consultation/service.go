package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/facility"
	"symptom-checker/internal/symptom"
)

var (
	// ErrEmptyInput is returned when neither text nor symptoms were given.
	ErrEmptyInput = errors.New("text or symptoms are required")
	// ErrInvalidSort is returned for an unknown facility ordering.
	ErrInvalidSort = errors.New("sort_by must be \"distance\" or \"rating\"")
	// ErrSpeechUnavailable is returned when no speech client is configured.
	ErrSpeechUnavailable = errors.New("speech service not configured")
)

// STTClient transcribes recorded speech.
type STTClient interface {
	Transcribe(ctx context.Context, audioData []byte) (string, error)
}

// TTSClient defines the interface for Text-to-Speech
type TTSClient interface {
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}

// ReportService defines the interface for sending reports
type ReportService interface {
	SendCareTeamReport(ctx context.Context, c Consultation) error
}

// Recorder receives an observation for every completed consultation.
type Recorder interface {
	ObserveConsultation(source string, tier string, matched bool)
}

type Service interface {
	ExtractSymptoms(text string) []string
	DetectSymptoms(text string) []DetectedSymptom
	MatchConditions(symptoms []string) []diagnosis.SymptomMatch
	ClassifyUrgency(tag string) diagnosis.Urgency
	FindNearbyFacilities(q facility.Query) ([]facility.Result, error)
	Symptoms() []string
	Cities() []string

	Assess(ctx context.Context, req Request) (*Consultation, error)
	AssessAudio(ctx context.Context, audio []byte, req Request) (*Consultation, error)
	GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error)
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

// Deps bundles the collaborators of the service. Speech, Report and
// Recorder are optional.
type Deps struct {
	Repo       Repository
	Extractor  *symptom.Extractor
	Conditions []diagnosis.Condition
	Locator    *facility.Locator
	STT        STTClient
	TTS        TTSClient
	Report     ReportService
	Recorder   Recorder
	Logger     zerolog.Logger
}

type service struct {
	repo       Repository
	extractor  *symptom.Extractor
	conditions []diagnosis.Condition
	locator    *facility.Locator
	sttClient  STTClient
	ttsClient  TTSClient
	reportSvc  ReportService
	recorder   Recorder
	logger     zerolog.Logger
}

func NewService(d Deps) Service {
	return &service{
		repo:       d.Repo,
		extractor:  d.Extractor,
		conditions: d.Conditions,
		locator:    d.Locator,
		sttClient:  d.STT,
		ttsClient:  d.TTS,
		reportSvc:  d.Report,
		recorder:   d.Recorder,
		logger:     d.Logger.With().Str("component", "consultation").Logger(),
	}
}

func (s *service) ExtractSymptoms(text string) []string {
	return s.extractor.Extract(text)
}

// DetectSymptoms extracts symptoms and scores how explicitly each was
// mentioned.
func (s *service) DetectSymptoms(text string) []DetectedSymptom {
	mentions := s.extractor.ExtractMentions(text)
	out := make([]DetectedSymptom, len(mentions))
	for i, m := range mentions {
		out[i] = DetectedSymptom{
			Label:      m.Label,
			Phrase:     m.Phrase,
			Severe:     m.Severe,
			Confidence: s.extractor.Confidence(text, m.Label),
		}
	}
	return out
}

func (s *service) MatchConditions(symptoms []string) []diagnosis.SymptomMatch {
	return diagnosis.Match(symptoms, s.conditions)
}

func (s *service) ClassifyUrgency(tag string) diagnosis.Urgency {
	return diagnosis.Classify(tag)
}

func (s *service) FindNearbyFacilities(q facility.Query) ([]facility.Result, error) {
	sortBy, err := normalizeSort(q.SortBy)
	if err != nil {
		return nil, err
	}
	q.SortBy = sortBy
	return s.locator.FindNearby(q), nil
}

func (s *service) Symptoms() []string {
	return s.extractor.Lexicon().Labels()
}

func (s *service) Cities() []string {
	return s.locator.Cities()
}

// Assess runs the full pipeline: symptoms, condition ranking, urgency of
// the top match and facilities for it. Finding nothing is not an error;
// the consultation is stored with empty matches.
func (s *service) Assess(ctx context.Context, req Request) (*Consultation, error) {
	return s.assess(ctx, req, "")
}

// AssessAudio transcribes a recording and assesses the transcript.
func (s *service) AssessAudio(ctx context.Context, audio []byte, req Request) (*Consultation, error) {
	if s.sttClient == nil {
		return nil, ErrSpeechUnavailable
	}
	text, err := s.sttClient.Transcribe(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	req.Text = text
	req.Symptoms = nil
	return s.assess(ctx, req, SourceAudio)
}

func (s *service) assess(ctx context.Context, req Request, source Source) (*Consultation, error) {
	sortBy, err := normalizeSort(req.SortBy)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Symptoms) == 0 {
		if source != SourceAudio {
			return nil, ErrEmptyInput
		}
		s.logger.Info().Msg("no speech detected in recording")
	}
	if source == "" {
		source = SourceSelection
		if strings.TrimSpace(req.Text) != "" {
			source = SourceText
		}
	}

	c := &Consultation{
		ID:         uuid.New(),
		Source:     source,
		InputText:  req.Text,
		City:       strings.TrimSpace(req.City),
		Location:   req.Location(),
		Symptoms:   s.collectSymptoms(req),
		Matches:    []diagnosis.SymptomMatch{},
		Facilities: []facility.Result{},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	c.Matches = s.MatchConditions(c.Labels())
	if top, ok := c.TopMatch(); ok {
		urgency := diagnosis.UrgencyOf(top.Disease)
		c.Urgency = &urgency
		c.Specializations = s.locator.Specializations(top.Disease.Name)
		c.Facilities = s.locator.FindNearby(facility.Query{
			Condition:     top.Disease.Name,
			User:          c.Location,
			City:          c.City,
			MaxDistanceKm: req.MaxDistanceKm,
			SortBy:        sortBy,
		})
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.observe(c)

	if c.IsCritical() && s.reportSvc != nil {
		go func(c Consultation) {
			// Detached so the report outlives the request.
			bgCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := s.reportSvc.SendCareTeamReport(bgCtx, c); err != nil {
				s.logger.Error().Err(err).Str("consultation_id", c.ID.String()).Msg("failed to send care team report")
				return
			}
			s.logger.Info().Str("consultation_id", c.ID.String()).Msg("care team report sent")
		}(*c)
	}

	return c, nil
}

// collectSymptoms merges symptoms picked from the list with the ones
// extracted from text. Picked symptoms come first.
func (s *service) collectSymptoms(req Request) []DetectedSymptom {
	var out []DetectedSymptom
	seen := make(map[string]bool)
	for _, label := range req.Symptoms {
		label = strings.TrimSpace(label)
		key := strings.ToLower(label)
		if label == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, DetectedSymptom{Label: label, Confidence: 1})
	}
	for _, d := range s.DetectSymptoms(req.Text) {
		key := strings.ToLower(d.Label)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	if out == nil {
		out = []DetectedSymptom{}
	}
	return out
}

func (s *service) observe(c *Consultation) {
	top, matched := c.TopMatch()
	evt := s.logger.Info().
		Str("consultation_id", c.ID.String()).
		Str("source", string(c.Source)).
		Int("symptoms", len(c.Symptoms)).
		Int("matches", len(c.Matches)).
		Int("facilities", len(c.Facilities))
	tier := ""
	if matched {
		tier = string(c.Urgency.Tier)
		evt = evt.Str("top_condition", top.Disease.Name).Float64("confidence", top.Confidence).Str("tier", tier)
	}
	evt.Msg("consultation assessed")

	if s.recorder != nil {
		s.recorder.ObserveConsultation(string(c.Source), tier, matched)
	}
}

func (s *service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	if s.ttsClient == nil {
		return nil, ErrSpeechUnavailable
	}
	// Empty voice lets the client use its default.
	return s.ttsClient.Synthesize(ctx, text, "")
}

func normalizeSort(s facility.SortBy) (facility.SortBy, error) {
	switch facility.SortBy(strings.ToLower(strings.TrimSpace(string(s)))) {
	case "", facility.SortByDistance:
		return facility.SortByDistance, nil
	case facility.SortByRating:
		return facility.SortByRating, nil
	default:
		return "", ErrInvalidSort
	}
}
