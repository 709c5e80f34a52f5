package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWhisperClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "wav-bytes" || header.Filename != "audio.wav" {
			t.Errorf("unexpected upload %q %s", data, header.Filename)
		}
		w.Write([]byte(`{"text":"  I have a fever  ","language":"en"}`))
	}))
	defer srv.Close()

	got, err := NewWhisperClient(srv.URL).Transcribe(context.Background(), []byte("wav-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "I have a fever" {
		t.Errorf("expected trimmed transcript, got %q", got)
	}
}

func TestWhisperClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewWhisperClient(srv.URL)
	if _, err := c.Transcribe(context.Background(), []byte("x")); err == nil {
		t.Error("expected error for non-200 response")
	}
	if _, err := c.Transcribe(context.Background(), nil); !errors.Is(err, ErrEmptyRecording) {
		t.Errorf("expected ErrEmptyRecording, got %v", err)
	}
}

func TestWhisperClient_VocabularyAndLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("expected language en, got %q", got)
		}
		want := "Patient describing symptoms: fever, dark urine."
		if got := r.FormValue("initial_prompt"); got != want {
			t.Errorf("expected prompt %q, got %q", want, got)
		}
		w.Write([]byte(`{"text":"fever"}`))
	}))
	defer srv.Close()

	c := NewWhisperClient(srv.URL, WithLanguage(" en "), WithVocabulary([]string{"Fever", "Dark urine"}))
	if _, err := c.Transcribe(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWhisperClient_NoHintsByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if _, ok := r.MultipartForm.Value["initial_prompt"]; ok {
			t.Error("unexpected initial_prompt field")
		}
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Error("unexpected language field")
		}
		w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	if _, err := NewWhisperClient(srv.URL).Transcribe(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithVocabulary_Truncates(t *testing.T) {
	terms := make([]string, maxPromptTerms+5)
	for i := range terms {
		terms[i] = "term"
	}
	if c := NewWhisperClient("http://stt", WithVocabulary(terms)); len(c.vocabulary) != maxPromptTerms {
		t.Errorf("expected %d terms, got %d", maxPromptTerms, len(c.vocabulary))
	}
}

func TestElevenLabsClient_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/"+defaultVoice {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		var body synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.Text != "See a doctor soon" || body.ModelID != defaultModel {
			t.Errorf("unexpected body %+v", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient(srv.URL+"/v1/text-to-speech/", "secret")
	got, err := c.Synthesize(context.Background(), "See a doctor soon", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "mp3" {
		t.Errorf("unexpected audio %q", got)
	}

	if _, err := c.Synthesize(context.Background(), "   ", ""); err == nil {
		t.Error("expected error for blank text")
	}
}
