package sources

import (
	"context"
	"log/slog"
	"os"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// speechToText is the slice of WhisperClient the transcriber needs;
// narrowed for testability.
type speechToText interface {
	Transcribe(ctx context.Context, audioPath, lang string) (string, error)
}

// Transcriber is the paid fallback path: download the audio, send it to
// speech-to-text, optionally delete the artifact afterwards.
type Transcriber struct {
	Downloader *AudioDownloader
	STT        speechToText
	Cleanup    bool
}

// NewTranscriber wires the default fallback chain from the engine config.
func NewTranscriber() *Transcriber {
	return &Transcriber{
		Downloader: &AudioDownloader{},
		STT:        &WhisperClient{},
		Cleanup:    engine.Cfg.CleanupAudio,
	}
}

// Transcribe produces a segment-less transcript for a video without native
// captions. One attempt only: the caller decides what a failure means.
func (t *Transcriber) Transcribe(ctx context.Context, video engine.VideoDescriptor, lang string) (engine.Transcript, error) {
	path, err := t.Downloader.Download(ctx, video)
	if t.Cleanup && path != "" {
		// Partial downloads are removed too, so a failed attempt never
		// poisons the artifact-reuse check on the next run.
		defer func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				slog.Warn("audio cleanup failed", slog.String("path", path), slog.Any("error", err))
			}
		}()
	}
	if err != nil {
		return engine.Transcript{}, err
	}

	text, err := t.STT.Transcribe(ctx, path, lang)
	if err != nil {
		return engine.Transcript{}, err
	}
	return engine.NewTextTranscript(video.ID, lang, engine.SourceFallback, text), nil
}
