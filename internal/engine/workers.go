package engine

import (
	"context"
	"log/slog"
	"sync"
)

// runFallback transcribes the pending videos on a bounded worker pool.
// Dispatch stops at cancellation, but a video already claimed by a worker is
// finished and cached: per-call timeouts bound the work, so detaching from
// the run context never leaks an unbounded task.
func (o *Orchestrator) runFallback(ctx context.Context, videos []VideoDescriptor, rb *reportBuilder) {
	workers := o.Workers
	if workers <= 0 {
		workers = 3
	}
	if workers > len(videos) {
		workers = len(videos)
	}
	lang := o.languages()[0]

	slog.Info("starting fallback transcription",
		slog.Int("videos", len(videos)), slog.Int("workers", workers))

	workCtx := context.WithoutCancel(ctx)
	tasks := make(chan VideoDescriptor)
	results := make(chan TranscriptionOutcome)

	go func() {
		defer close(tasks)
		for _, v := range videos {
			// select alone would pick randomly when a worker is ready at the
			// same time as cancellation; a cancelled run must not hand out
			// new videos.
			if ctx.Err() != nil {
				return
			}
			select {
			case tasks <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for video := range tasks {
				results <- o.fallbackOne(workCtx, video, lang)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for outcome := range results {
		rb.record(outcome, false)
	}

	// Videos never dispatched because the run was cancelled stay out of the
	// cache so the next run picks them up, but the report still accounts for
	// every resolved video.
	for _, v := range videos {
		if !rb.has(v.ID) {
			rb.record(NeedsFallbackOutcome(v.ID, ReasonNoNativeTranscript), false)
		}
	}
}

func (o *Orchestrator) fallbackOne(ctx context.Context, video VideoDescriptor, lang string) TranscriptionOutcome {
	transcript, err := o.Fallback.Transcribe(ctx, video, lang)

	var outcome TranscriptionOutcome
	if err != nil {
		slog.Warn("fallback transcription failed",
			slog.String("video", video.ID), slog.Any("error", err))
		outcome = FailedOutcome(video.ID, err)
	} else {
		slog.Info("fallback transcript acquired", slog.String("video", video.ID))
		outcome = SuccessOutcome(transcript)
	}

	if err := o.Cache.Put(ctx, outcome.VideoID, outcome); err != nil {
		slog.Error("cache write failed",
			slog.String("video", outcome.VideoID), slog.Any("error", err))
	}
	return outcome
}
