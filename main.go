// go_transcripts — YouTube transcript acquisition pipeline.
//
// Resolves a channel, playlist, explicit IDs, or search query into a video
// list, fetches native transcripts, optionally falls back to paid Whisper
// transcription, and records every outcome in a durable SQLite cache.
//
// Configuration is environment-only. One invocation is one run: the process
// prints an aggregate report and exits.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/sources"
)

var version = "dev"

func main() {
	initLogging()

	if err := run(); err != nil {
		slog.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initEngine()

	source := sourceFromEnv()
	if err := source.Validate(); err != nil {
		return err
	}

	slog.Info("starting go_transcripts",
		slog.String("version", version),
		slog.String("source", source.Ref()),
		slog.Bool("fallback", engine.Cfg.FallbackEnabled),
		slog.Int("workers", engine.Cfg.Workers),
	)

	cache, err := engine.OpenCache(engine.Cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer cache.Close()

	orch := &engine.Orchestrator{
		Cache:           cache,
		Fetcher:         sources.TranscriptFetcher{},
		Fallback:        sources.NewTranscriber(),
		Languages:       engine.Cfg.Languages,
		FallbackEnabled: engine.Cfg.FallbackEnabled,
		Force:           engine.Cfg.Force,
		Workers:         engine.Cfg.Workers,
	}

	report, err := orch.Run(ctx, source.Resolve(ctx))
	if err != nil {
		return err
	}

	// Persist run stats and the report regardless of cancellation: a partial
	// run is still a run.
	if err := cache.RecordRun(context.WithoutCancel(ctx), report); err != nil {
		slog.Warn("record run failed", slog.Any("error", err))
	}
	if err := writeReport(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if path := env.Str("EXPORT_PATH", ""); path != "" {
		if err := exportTranscripts(context.WithoutCancel(ctx), cache, path); err != nil {
			return fmt.Errorf("export transcripts: %w", err)
		}
	}

	slog.Info("run finished",
		slog.String("run_id", report.RunID),
		slog.Int("cached", report.Cached),
		slog.Int("native", report.NativeSuccess),
		slog.Int("fallback", report.FallbackSuccess),
		slog.Int("needs_fallback", report.NeedsFallback),
		slog.Int("failed", report.Failed),
	)
	slog.Debug("metrics", slog.String("counters", engine.FormatMetrics()))
	return nil
}

// --- configuration ---

func initEngine() {
	engine.Init(engine.Config{
		Languages:       env.List("LANGUAGES", "en"),
		FallbackEnabled: envBool("FALLBACK_WHISPER", false),
		Force:           envBool("FORCE", false),
		Workers:         env.Int("WHISPER_WORKERS", 3),

		CachePath:    env.Str("CACHE_PATH", "transcripts.db"),
		AudioDir:     env.Str("AUDIO_DIR", "audio"),
		CleanupAudio: envBool("CLEANUP_AUDIO", true),
		MaxAudioMB:   env.Int("MAX_AUDIO_MB", 25),

		YTDLPPath: env.Str("YTDLP_PATH", "yt-dlp"),

		WhisperAPIBase: env.Str("OPENAI_API_BASE", "https://api.openai.com/v1"),
		WhisperAPIKey:  env.Str("OPENAI_API_KEY", ""),
		WhisperModel:   env.Str("WHISPER_MODEL", "whisper-1"),

		ResolveTimeout:    env.Duration("RESOLVE_TIMEOUT", 2*time.Minute),
		FetchTimeout:      env.Duration("FETCH_TIMEOUT", 30*time.Second),
		DownloadTimeout:   env.Duration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		TranscribeTimeout: env.Duration("TRANSCRIBE_TIMEOUT", 10*time.Minute),

		Retry: engine.RetryConfig{
			MaxRetries:  env.Int("RETRY_MAX", engine.DefaultRetryConfig.MaxRetries),
			InitialWait: engine.DefaultRetryConfig.InitialWait,
			MaxWait:     engine.DefaultRetryConfig.MaxWait,
			Multiplier:  engine.DefaultRetryConfig.Multiplier,
		},
	})
}

func sourceFromEnv() *sources.Source {
	var ids []string
	for _, id := range env.List("SOURCE_IDS", "") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return &sources.Source{
		Channel:    env.Str("SOURCE_CHANNEL", ""),
		Playlist:   env.Str("SOURCE_PLAYLIST", ""),
		IDs:        ids,
		Query:      env.Str("SOURCE_QUERY", ""),
		MaxResults: env.Int("SEARCH_MAX_RESULTS", 50),
		StartFrom:  env.Int("START_FROM", 0),
	}
}

// envBool reads a boolean env var; anything strconv.ParseBool rejects
// falls back to def.
func envBool(key string, def bool) bool {
	raw := env.Str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("invalid boolean env var, using default",
			slog.String("key", key), slog.String("value", raw), slog.Bool("default", def))
		return def
	}
	return v
}

func initLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(env.Str("LOG_LEVEL", "info")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// --- output ---

// writeReport emits the aggregate report as indented JSON to REPORT_PATH,
// or stdout when unset.
func writeReport(report *engine.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path := env.Str("REPORT_PATH", ""); path != "" {
		return os.WriteFile(path, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}

// exportTranscripts dumps every successful transcript in the cache to a JSON
// file. Spans all runs, not just this one: the cache is the source of truth.
func exportTranscripts(ctx context.Context, cache *engine.SQLiteCache, path string) error {
	outcomes, err := cache.All(ctx)
	if err != nil {
		return err
	}
	transcripts := make([]engine.Transcript, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == engine.StatusSuccess && o.Transcript != nil {
			transcripts = append(transcripts, *o.Transcript)
		}
	}
	data, err := json.MarshalIndent(transcripts, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	slog.Info("transcripts exported", slog.String("path", path), slog.Int("count", len(transcripts)))
	return nil
}
