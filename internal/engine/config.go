package engine

import (
	"net/http"
	"time"
)

// Config holds all pipeline configuration, injected from main.
type Config struct {
	Languages []string // transcript language codes in priority order

	FallbackEnabled bool // opt-in: paid speech-to-text for videos without captions
	Force           bool // bypass cached outcomes and re-run the full pipeline
	Workers         int  // fallback worker pool size

	CachePath    string // outcome cache database location
	AudioDir     string // scratch directory for downloaded audio
	CleanupAudio bool   // delete audio artifacts after each fallback attempt
	MaxAudioMB   int    // speech-to-text per-file upload limit

	YTDLPPath string // yt-dlp binary

	WhisperAPIBase string
	WhisperAPIKey  string
	WhisperModel   string

	ResolveTimeout    time.Duration
	FetchTimeout      time.Duration
	DownloadTimeout   time.Duration
	TranscribeTimeout time.Duration

	Retry      RetryConfig
	HTTPClient *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration, filling in
// defaults for anything unset. Call once from main before any pipeline work.
func Init(c Config) {
	if len(c.Languages) == 0 {
		c.Languages = []string{"en"}
	}
	if c.Workers <= 0 {
		c.Workers = 3
	}
	if c.MaxAudioMB <= 0 {
		c.MaxAudioMB = 25 // Whisper API per-file limit
	}
	if c.YTDLPPath == "" {
		c.YTDLPPath = "yt-dlp"
	}
	if c.WhisperAPIBase == "" {
		c.WhisperAPIBase = "https://api.openai.com/v1"
	}
	if c.WhisperModel == "" {
		c.WhisperModel = "whisper-1"
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 2 * time.Minute
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 5 * time.Minute
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = 10 * time.Minute
	}
	if c.Retry == (RetryConfig{}) {
		c.Retry = DefaultRetryConfig
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	cfg = c
	Cfg = &cfg
}
