package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/signintech/gopdf"

	"symptom-checker/internal/consultation"
	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/facility"
)

// maxFacilities is how many facilities a report lists.
const maxFacilities = 3

var ErrNoFont = errors.New("no usable TTF font for PDF report")

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName, caption string) error
}

// DefaultFontPaths are tried in order until one loads.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

type Service struct {
	tgClient   TelegramClient
	careChatID int64
	fontPaths  []string
	logger     zerolog.Logger
}

func NewService(tg TelegramClient, careChatID int64, logger zerolog.Logger) *Service {
	return &Service{
		tgClient:   tg,
		careChatID: careChatID,
		fontPaths:  DefaultFontPaths,
		logger:     logger.With().Str("component", "report").Logger(),
	}
}

// WithFontPaths overrides the font search list.
func (s *Service) WithFontPaths(paths ...string) *Service {
	s.fontPaths = paths
	return s
}

// SendCareTeamReport renders c as a PDF and posts it to the care team chat.
// Without a usable font the alert goes out as a plain text message.
func (s *Service) SendCareTeamReport(ctx context.Context, c consultation.Consultation) error {
	log := s.logger.With().Str("consultation_id", c.ID.String()).Logger()
	log.Debug().Msg("generating care team report")

	data, err := s.Render(c)
	if errors.Is(err, ErrNoFont) {
		log.Warn().Msg("sending care team alert as text")
		if err := s.tgClient.SendMessage(ctx, s.careChatID, Summary(c)); err != nil {
			return fmt.Errorf("send alert: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	fileName := fmt.Sprintf("report_%s.pdf", c.ID.String())
	if err := s.tgClient.SendDocument(ctx, s.careChatID, data, fileName, Caption(c)); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	log.Info().Int64("chat_id", s.careChatID).Int("bytes", len(data)).Msg("care team report delivered")
	return nil
}

// Render draws the report onto a single A4 page.
func (s *Service) Render(c consultation.Consultation) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := s.loadFont(&pdf); err != nil {
		return nil, err
	}

	for _, sec := range Sections(c) {
		if sec.Title != "" {
			if err := pdf.SetFont("DejaVu", "", sec.Size); err != nil {
				return nil, err
			}
			pdf.Cell(nil, sec.Title)
			pdf.Br(float64(sec.Size) + 6)
		}
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		for _, line := range sec.Lines {
			wrapped, err := pdf.SplitText(line, 500)
			if err != nil {
				wrapped = []string{line}
			}
			for _, l := range wrapped {
				pdf.Cell(nil, l)
				pdf.Br(14)
			}
		}
		pdf.Br(10)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	s.logger.Error().Err(lastErr).Strs("paths", s.fontPaths).Msg("failed to load report font")
	return fmt.Errorf("%w: %v", ErrNoFont, lastErr)
}

// Section is a titled block of report text.
type Section struct {
	Title string
	Size  int
	Lines []string
}

// Sections lays out the report content independent of rendering.
func Sections(c consultation.Consultation) []Section {
	header := Section{
		Title: "Symptom Check Report",
		Size:  20,
		Lines: []string{
			fmt.Sprintf("Date: %s", c.CreatedAt.Format("02.01.2006 15:04")),
			fmt.Sprintf("Consultation: %s", c.ID),
			fmt.Sprintf("Source: %s", c.Source),
		},
	}
	if c.Urgency != nil {
		header.Lines = append(header.Lines, fmt.Sprintf("Urgency: %s", c.Urgency.Label))
	}
	if c.InputText != "" {
		header.Lines = append(header.Lines, fmt.Sprintf("Patient said: %q", c.InputText))
	}

	symptoms := Section{Title: "Reported symptoms", Size: 14}
	for _, s := range c.Symptoms {
		line := "- " + s.Label
		if s.Severe {
			line += " (severe)"
		}
		symptoms.Lines = append(symptoms.Lines, line)
	}
	if len(symptoms.Lines) == 0 {
		symptoms.Lines = []string{"- None detected."}
	}

	sections := []Section{header, symptoms}

	if top, ok := c.TopMatch(); ok {
		cond := Section{Title: "Most likely condition", Size: 14, Lines: []string{
			fmt.Sprintf("%s (%.1f%% match, %d symptoms)", top.Disease.Name, top.Confidence, top.MatchCount),
			"Matched: " + strings.Join(symptomNames(top.MatchedSymptoms), ", "),
		}}
		if top.Disease.ConsultDoctor.Reason != "" {
			cond.Lines = append(cond.Lines, "Reason: "+top.Disease.ConsultDoctor.Reason)
		}
		sections = append(sections, cond)
	}

	if len(c.Facilities) > 0 {
		fac := Section{Title: "Nearest facilities", Size: 14}
		for i, f := range c.Facilities {
			if i == maxFacilities {
				break
			}
			fac.Lines = append(fac.Lines, facilityLine(f))
		}
		sections = append(sections, fac)
	}
	return sections
}

// Caption is the short message attached to the document.
func Caption(c consultation.Consultation) string {
	top, ok := c.TopMatch()
	if !ok {
		return "Symptom check " + c.ID.String()
	}
	label := ""
	if c.Urgency != nil {
		label = c.Urgency.Label + ": "
	}
	return fmt.Sprintf("%s%s (%.1f%%)", label, top.Disease.Name, top.Confidence)
}

// Summary is the plain text form of the report: the caption followed by
// the nearest facilities.
func Summary(c consultation.Consultation) string {
	lines := []string{Caption(c)}
	for i, f := range c.Facilities {
		if i == maxFacilities {
			break
		}
		lines = append(lines, facilityLine(f))
	}
	return strings.Join(lines, "\n")
}

func symptomNames(symptoms []diagnosis.ConditionSymptom) []string {
	names := make([]string, len(symptoms))
	for i, s := range symptoms {
		names[i] = s.Symptom
	}
	return names
}

func facilityLine(f facility.Result) string {
	line := "- " + f.Name
	if f.DistanceKm != nil {
		line += fmt.Sprintf(", %.1f km", *f.DistanceKm)
	}
	if f.TravelTime != nil {
		line += ", " + *f.TravelTime
	}
	if f.Phone != "" {
		line += ", " + f.Phone
	}
	return line
}
