package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// WhisperClient calls an OpenAI-compatible speech-to-text endpoint.
// Every call costs money: the client makes exactly one logical transcription
// attempt, with transport retries only for retryable statuses.
type WhisperClient struct {
	// HTTPClient overrides the engine default. Whisper uploads run far
	// longer than ordinary API calls, so the default client's timeout
	// would cut them off.
	HTTPClient *http.Client
}

// whisperResp is the response of /audio/transcriptions with response_format=json.
type whisperResp struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file and returns the transcribed text.
func (w *WhisperClient) Transcribe(ctx context.Context, audioPath, lang string) (string, error) {
	if engine.Cfg.WhisperAPIKey == "" {
		return "", errors.New("whisper: no API key configured")
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	if maxBytes := int64(engine.Cfg.MaxAudioMB) * 1024 * 1024; info.Size() > maxBytes {
		return "", fmt.Errorf("whisper: audio file %s is %d bytes, exceeds %dMB upload limit",
			filepath.Base(audioPath), info.Size(), engine.Cfg.MaxAudioMB)
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	body, contentType, err := buildTranscriptionForm(filepath.Base(audioPath), audio, lang)
	if err != nil {
		return "", err
	}

	engine.IncrWhisperCalls()

	client := w.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: engine.Cfg.TranscribeTimeout}
	}
	endpoint := engine.Cfg.WhisperAPIBase + "/audio/transcriptions"

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.TranscribeTimeout)
	defer cancel()

	resp, err := engine.RetryHTTP(ctx, engine.Cfg.Retry, func() (*http.Response, error) {
		// The body reader is consumed per attempt, so rebuild it each time.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+engine.Cfg.WhisperAPIKey)
		return client.Do(req)
	})
	if err != nil {
		engine.IncrWhisperErrors()
		return "", fmt.Errorf("whisper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		engine.IncrWhisperErrors()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("whisper: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var result whisperResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		engine.IncrWhisperErrors()
		return "", fmt.Errorf("whisper: decode response: %w", err)
	}
	if result.Text == "" {
		engine.IncrWhisperErrors()
		return "", errors.New("whisper: empty transcription")
	}
	return result.Text, nil
}

// buildTranscriptionForm assembles the multipart body for /audio/transcriptions.
func buildTranscriptionForm(filename string, audio []byte, lang string) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("model", engine.Cfg.WhisperModel); err != nil {
		return nil, "", err
	}
	if lang != "" {
		if err := mw.WriteField("language", lang); err != nil {
			return nil, "", err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
