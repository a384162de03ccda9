package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the pipeline.
var metrics struct {
	ResolveRequests     atomic.Int64
	NativeFetches       atomic.Int64
	TimedTextFetches    atomic.Int64
	AudioDownloads      atomic.Int64
	AudioDownloadErrors atomic.Int64
	WhisperCalls        atomic.Int64
	WhisperErrors       atomic.Int64
	CacheHits           atomic.Int64
	CacheMisses         atomic.Int64
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"resolve_requests":      metrics.ResolveRequests.Load(),
		"native_fetches":        metrics.NativeFetches.Load(),
		"timedtext_fetches":     metrics.TimedTextFetches.Load(),
		"audio_downloads":       metrics.AudioDownloads.Load(),
		"audio_download_errors": metrics.AudioDownloadErrors.Load(),
		"whisper_calls":         metrics.WhisperCalls.Load(),
		"whisper_errors":        metrics.WhisperErrors.Load(),
		"cache_hits":            metrics.CacheHits.Load(),
		"cache_misses":          metrics.CacheMisses.Load(),
	}
}

// FormatMetrics returns counters as simple key-value text.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"resolve_requests",
		"native_fetches", "timedtext_fetches",
		"audio_downloads", "audio_download_errors",
		"whisper_calls", "whisper_errors",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the sources sub-package.
func IncrResolveRequests()     { metrics.ResolveRequests.Add(1) }
func IncrNativeFetches()       { metrics.NativeFetches.Add(1) }
func IncrTimedTextFetches()    { metrics.TimedTextFetches.Add(1) }
func IncrAudioDownloads()      { metrics.AudioDownloads.Add(1) }
func IncrAudioDownloadErrors() { metrics.AudioDownloadErrors.Add(1) }
func IncrWhisperCalls()        { metrics.WhisperCalls.Add(1) }
func IncrWhisperErrors()       { metrics.WhisperErrors.Add(1) }

func incrCacheHits()   { metrics.CacheHits.Add(1) }
func incrCacheMisses() { metrics.CacheMisses.Add(1) }

// CacheStats returns the current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return metrics.CacheHits.Load(), metrics.CacheMisses.Load()
}
