package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
)

// ErrEmptyRecording is returned for a zero-length upload.
var ErrEmptyRecording = errors.New("empty recording")

// maxPromptTerms bounds the vocabulary hint; Whisper only reads the tail
// of a long prompt.
const maxPromptTerms = 40

// WhisperClient transcribes patient recordings. A symptom vocabulary, when
// set, is sent as the initial prompt so terms like "jaundice" or "dark
// urine" are spelled the way the extractor expects.
type WhisperClient struct {
	url        string
	language   string
	vocabulary []string
	httpClient *http.Client
}

type WhisperOption func(*WhisperClient)

// WithLanguage fixes the spoken language instead of auto-detection.
func WithLanguage(lang string) WhisperOption {
	return func(c *WhisperClient) { c.language = strings.TrimSpace(lang) }
}

// WithVocabulary biases recognition towards the given symptom terms.
func WithVocabulary(terms []string) WhisperOption {
	return func(c *WhisperClient) {
		if len(terms) > maxPromptTerms {
			terms = terms[:maxPromptTerms]
		}
		c.vocabulary = terms
	}
}

func NewWhisperClient(url string, opts ...WhisperOption) *WhisperClient {
	c := &WhisperClient{url: url, httpClient: newHTTPClient()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (c *WhisperClient) prompt() string {
	if len(c.vocabulary) == 0 {
		return ""
	}
	return "Patient describing symptoms: " + strings.ToLower(strings.Join(c.vocabulary, ", ")) + "."
}

// Transcribe returns the trimmed transcript of a WAV recording.
func (c *WhisperClient) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	if len(audioData) == 0 {
		return "", ErrEmptyRecording
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	fields := map[string]string{"language": c.language, "initial_prompt": c.prompt()}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := form.WriteField(name, value); err != nil {
			return "", err
		}
	}
	part, err := form.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audioData); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	raw, err := do(c.httpClient, "STT", req)
	if err != nil {
		return "", err
	}
	var result transcription
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}
