package consultation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"symptom-checker/internal/facility"
)

const maxAudioUpload = 10 << 20

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type ExtractRequest struct {
	Text string `json:"text"`
}

type MatchRequest struct {
	Symptoms []string `json:"symptoms"`
}

type TTSRequest struct {
	Text string `json:"text"`
}

func (h *Handler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	c, err := h.svc.Assess(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) CreateAudioConsultation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "Error retrieving audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
		return
	}

	req := Request{
		City:   r.FormValue("city"),
		SortBy: facility.SortBy(r.FormValue("sort_by")),
	}
	if req.Lat, req.Lon, err = parseCoordinates(r.FormValue("lat"), r.FormValue("lon")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.MaxDistanceKm, err = parseOptionalFloat("max_distance_km", r.FormValue("max_distance_km")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.AssessAudio(r.Context(), buf.Bytes(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid consultation ID", http.StatusBadRequest)
		return
	}

	c, err := h.svc.GetConsultation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ExtractSymptoms(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	detected := h.svc.DetectSymptoms(req.Text)
	labels := make([]string, len(detected))
	for i, d := range detected {
		labels[i] = d.Label
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symptoms": labels,
		"detected": detected,
	})
}

func (h *Handler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"symptoms": h.svc.Symptoms()})
}

func (h *Handler) MatchConditions(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": h.svc.MatchConditions(req.Symptoms)})
}

func (h *Handler) ClassifyUrgency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ClassifyUrgency(chi.URLParam(r, "tag")))
}

func (h *Handler) FindFacilities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	condition := strings.TrimSpace(q.Get("condition"))
	if condition == "" {
		http.Error(w, "Missing condition", http.StatusBadRequest)
		return
	}

	lat, lon, err := parseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	maxDistance, err := parseOptionalFloat("max_distance_km", q.Get("max_distance_km"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := facility.Query{
		Condition:     condition,
		City:          q.Get("city"),
		MaxDistanceKm: maxDistance,
		SortBy:        facility.SortBy(q.Get("sort_by")),
	}
	if lat != nil && lon != nil {
		query.User = &facility.Coordinates{Lat: *lat, Lon: *lon}
	}

	results, err := h.svc.FindNearbyFacilities(query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"facilities": results})
}

func (h *Handler) ListCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"cities": h.svc.Cities()})
}

func (h *Handler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	audioData, err := h.svc.SynthesizeSpeech(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audioData)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/consultations", h.CreateConsultation)
	r.Post("/consultations/audio", h.CreateAudioConsultation)
	r.Get("/consultations/{id}", h.GetConsultation)
	r.Get("/symptoms", h.ListSymptoms)
	r.Post("/symptoms/extract", h.ExtractSymptoms)
	r.Post("/conditions/match", h.MatchConditions)
	r.Get("/urgency/{tag}", h.ClassifyUrgency)
	r.Get("/facilities", h.FindFacilities)
	r.Get("/facilities/cities", h.ListCities)
	r.Post("/tts", h.HandleTTS)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrInvalidSort):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrSpeechUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "Processing failed: "+err.Error(), http.StatusInternalServerError)
	}
}

// parseCoordinates parses an optional lat/lon pair. A pair with only one
// half set is treated as no location.
func parseCoordinates(latStr, lonStr string) (*float64, *float64, error) {
	if latStr == "" || lonStr == "" {
		return nil, nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, nil, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, nil, errors.New("invalid lon")
	}
	return &lat, &lon, nil
}

func parseOptionalFloat(name, v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, errors.New("invalid " + name)
	}
	return f, nil
}
