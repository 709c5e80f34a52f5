package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultTTSURL = "https://api.elevenlabs.io/v1/text-to-speech"
	defaultVoice  = "21m00Tcm4TlvDq8ikWAM"
	defaultModel  = "eleven_multilingual_v2"
)

// ElevenLabsClient reads consultation summaries aloud.
type ElevenLabsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewElevenLabsClient(baseURL, apiKey string) *ElevenLabsClient {
	if baseURL == "" {
		baseURL = DefaultTTSURL
	}
	return &ElevenLabsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns MPEG audio for text. An empty voiceID selects the
// default voice.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("nothing to synthesize")
	}
	if voiceID == "" {
		voiceID = defaultVoice
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:          text,
		ModelID:       defaultModel,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+voiceID, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	return do(c.httpClient, "TTS", req)
}
