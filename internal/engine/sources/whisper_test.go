package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

func writeAudioFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vid1.mp3")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestWhisperTranscribe(t *testing.T) {
	var gotModel, gotLang, gotFile, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		if f, header, err := r.FormFile("file"); err == nil {
			gotFile = header.Filename
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"transcribed speech"}`))
	}))
	defer srv.Close()

	engine.Init(engine.Config{
		WhisperAPIBase: srv.URL,
		WhisperAPIKey:  "sk-test",
		WhisperModel:   "whisper-1",
	})

	w := &WhisperClient{}
	text, err := w.Transcribe(context.Background(), writeAudioFile(t, 1024), "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "transcribed speech" {
		t.Errorf("text = %q", text)
	}
	if gotModel != "whisper-1" || gotLang != "en" {
		t.Errorf("form = (%q, %q), want (whisper-1, en)", gotModel, gotLang)
	}
	if gotFile != "vid1.mp3" {
		t.Errorf("filename = %q, want vid1.mp3", gotFile)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth = %q", gotAuth)
	}
}

func TestWhisperErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid file"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	engine.Init(engine.Config{WhisperAPIBase: srv.URL, WhisperAPIKey: "sk-test"})

	w := &WhisperClient{}
	_, err := w.Transcribe(context.Background(), writeAudioFile(t, 64), "en")
	if err == nil {
		t.Fatal("expected error on HTTP 400")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v, want status code in message", err)
	}
}

func TestWhisperSizeLimit(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	engine.Init(engine.Config{WhisperAPIBase: srv.URL, WhisperAPIKey: "sk-test", MaxAudioMB: 1})

	w := &WhisperClient{}
	_, err := w.Transcribe(context.Background(), writeAudioFile(t, 2*1024*1024), "en")
	if err == nil {
		t.Fatal("expected size limit error")
	}
	if !strings.Contains(err.Error(), "upload limit") {
		t.Errorf("err = %v, want upload limit message", err)
	}
	if called {
		t.Error("oversized file must never reach the API")
	}
}

func TestWhisperRequiresAPIKey(t *testing.T) {
	engine.Init(engine.Config{WhisperAPIKey: ""})

	w := &WhisperClient{}
	_, err := w.Transcribe(context.Background(), writeAudioFile(t, 64), "en")
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("err = %v, want missing API key error", err)
	}
}
