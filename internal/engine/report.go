package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Report aggregates per-video outcomes for one run. This is the externally
// consumed result: counts for the operator plus the full outcome list.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Cached          int `json:"cached"`
	NativeSuccess   int `json:"native_success"`
	FallbackSuccess int `json:"fallback_success"`
	NeedsFallback   int `json:"needs_fallback_unresolved"`
	Failed          int `json:"failed"`

	// Outcomes is sorted by video id; completion order within the fallback
	// pool is not deterministic and must not leak into the report.
	Outcomes []TranscriptionOutcome `json:"outcomes"`
}

// reportBuilder merges outcomes as they arrive, keyed by video id. Safe for
// concurrent use by the fallback workers.
type reportBuilder struct {
	mu       sync.Mutex
	report   Report
	outcomes map[string]TranscriptionOutcome
}

func newReportBuilder() *reportBuilder {
	return &reportBuilder{
		report: Report{
			RunID:     uuid.NewString(),
			StartedAt: time.Now().UTC(),
		},
		outcomes: make(map[string]TranscriptionOutcome),
	}
}

// record merges one outcome. fromCache marks cache hits, which are counted
// separately from fresh results regardless of the cached status.
func (b *reportBuilder) record(outcome TranscriptionOutcome, fromCache bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.outcomes[outcome.VideoID] = outcome

	switch {
	case fromCache:
		b.report.Cached++
	case outcome.Status == StatusSuccess && outcome.Transcript != nil && outcome.Transcript.Source == SourceFallback:
		b.report.FallbackSuccess++
	case outcome.Status == StatusSuccess:
		b.report.NativeSuccess++
	case outcome.Status == StatusNeedsFallback:
		b.report.NeedsFallback++
	default:
		b.report.Failed++
	}
}

// has reports whether an outcome for videoID was already recorded.
func (b *reportBuilder) has(videoID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.outcomes[videoID]
	return ok
}

// finish freezes the report with outcomes sorted by video id.
func (b *reportBuilder) finish() *Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.report.FinishedAt = time.Now().UTC()
	b.report.Outcomes = make([]TranscriptionOutcome, 0, len(b.outcomes))
	for _, outcome := range b.outcomes {
		b.report.Outcomes = append(b.report.Outcomes, outcome)
	}
	sort.Slice(b.report.Outcomes, func(i, j int) bool {
		return b.report.Outcomes[i].VideoID < b.report.Outcomes[j].VideoID
	})

	report := b.report
	return &report
}
