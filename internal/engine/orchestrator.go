package engine

import (
	"context"
	"errors"
	"iter"
	"log/slog"
)

// NativeFetcher retrieves a platform transcript for a video in the first
// available of the requested languages. Pure query: it never writes the cache.
type NativeFetcher interface {
	Fetch(ctx context.Context, video VideoDescriptor, langs []string) (Transcript, error)
}

// FallbackTranscriber produces a transcript by downloading the video's audio
// and sending it to paid speech-to-text. A single failed attempt is final;
// retry policy lives outside the component.
type FallbackTranscriber interface {
	Transcribe(ctx context.Context, video VideoDescriptor, lang string) (Transcript, error)
}

// Orchestrator drives the acquisition pipeline per video:
// cache check → primary attempt → fallback gate → cache write.
// Caching is owned here, not by the fetchers.
type Orchestrator struct {
	Cache    Cache
	Fetcher  NativeFetcher
	Fallback FallbackTranscriber

	Languages       []string // priority order, first available wins
	FallbackEnabled bool     // paid transcription requires explicit opt-in
	Force           bool     // bypass cached outcomes, overwrite on completion
	Workers         int      // fallback pool size
}

// Run consumes the resolved video sequence and returns the aggregate report.
// Per-video failures are recorded and the run continues; only a resolution
// error aborts, since no videos means no downstream work.
func (o *Orchestrator) Run(ctx context.Context, videos iter.Seq2[VideoDescriptor, error]) (*Report, error) {
	rb := newReportBuilder()
	var pending []VideoDescriptor // videos awaiting fallback transcription

	for video, err := range videos {
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			break
		}
		o.processPrimary(ctx, video, rb, &pending)
	}

	if len(pending) > 0 {
		o.runFallback(ctx, pending, rb)
	}

	return rb.finish(), nil
}

// processPrimary runs the sequential phase for one video: cache check and
// native transcript attempt. Videos that need paid transcription are deferred
// to the worker pool instead of being transcribed inline.
func (o *Orchestrator) processPrimary(ctx context.Context, video VideoDescriptor, rb *reportBuilder, pending *[]VideoDescriptor) {
	if !o.Force {
		if cached, ok := o.Cache.Get(ctx, video.ID); ok {
			// The needs_fallback sentinel exists so a fallback-enabled re-run
			// skips the native attempt and goes straight to transcription.
			// Every other cached outcome short-circuits the video entirely.
			if cached.Status == StatusNeedsFallback && o.FallbackEnabled {
				slog.Debug("cached sentinel, queueing for fallback", slog.String("video", video.ID))
				*pending = append(*pending, video)
				return
			}
			slog.Debug("cache hit", slog.String("video", video.ID), slog.String("status", string(cached.Status)))
			rb.record(cached, true)
			return
		}
	}

	transcript, err := o.Fetcher.Fetch(ctx, video, o.languages())
	switch {
	case err == nil:
		slog.Info("native transcript acquired",
			slog.String("video", video.ID), slog.String("language", transcript.Language))
		o.complete(ctx, rb, SuccessOutcome(transcript))

	case errors.Is(err, ErrNoTranscript):
		if o.FallbackEnabled {
			*pending = append(*pending, video)
			return
		}
		slog.Info("no native transcript, fallback disabled", slog.String("video", video.ID))
		o.complete(ctx, rb, NeedsFallbackOutcome(video.ID, ReasonNoNativeTranscript))

	default:
		slog.Warn("native transcript attempt failed",
			slog.String("video", video.ID), slog.Any("error", err))
		o.complete(ctx, rb, FailedOutcome(video.ID, err))
	}
}

// complete persists a terminal outcome and merges it into the report.
func (o *Orchestrator) complete(ctx context.Context, rb *reportBuilder, outcome TranscriptionOutcome) {
	if err := o.Cache.Put(ctx, outcome.VideoID, outcome); err != nil {
		slog.Error("cache write failed",
			slog.String("video", outcome.VideoID), slog.Any("error", err))
	}
	rb.record(outcome, false)
}

func (o *Orchestrator) languages() []string {
	if len(o.Languages) == 0 {
		return []string{"en"}
	}
	return o.Languages
}
