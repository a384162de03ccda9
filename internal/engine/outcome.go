package engine

// OutcomeStatus enumerates the closed set of per-video results. Every consumer
// switches over all three cases; there is no loosely-typed "maybe" state.
type OutcomeStatus string

const (
	StatusSuccess       OutcomeStatus = "success"
	StatusNeedsFallback OutcomeStatus = "needs_fallback"
	StatusFailed        OutcomeStatus = "failed"
)

// ReasonNoNativeTranscript marks videos whose requested languages carry no
// platform captions. Not an error — it drives the fallback decision.
const ReasonNoNativeTranscript = "no_native_transcript"

// TranscriptionOutcome is the terminal result of the pipeline for one video
// and the unit stored in the cache. Exactly one of Transcript, Reason, and Err
// is meaningful, selected by Status.
type TranscriptionOutcome struct {
	VideoID    string        `json:"video_id"`
	Status     OutcomeStatus `json:"status"`
	Transcript *Transcript   `json:"transcript,omitempty"` // Status == success
	Reason     string        `json:"reason,omitempty"`     // Status == needs_fallback
	Err        string        `json:"error,omitempty"`      // Status == failed
}

// SuccessOutcome wraps an acquired transcript.
func SuccessOutcome(t Transcript) TranscriptionOutcome {
	return TranscriptionOutcome{VideoID: t.VideoID, Status: StatusSuccess, Transcript: &t}
}

// NeedsFallbackOutcome marks a video that has no native transcript and is
// waiting for (or was denied) paid transcription.
func NeedsFallbackOutcome(videoID, reason string) TranscriptionOutcome {
	return TranscriptionOutcome{VideoID: videoID, Status: StatusNeedsFallback, Reason: reason}
}

// FailedOutcome records a hard per-video failure. The error text is capped so
// multi-kilobyte subprocess stderr does not bloat the cache.
func FailedOutcome(videoID string, err error) TranscriptionOutcome {
	o := TranscriptionOutcome{VideoID: videoID, Status: StatusFailed}
	if err != nil {
		o.Err = TruncateRunes(err.Error(), 500, "...")
	}
	return o
}

// Valid reports whether the outcome has a known status and the field that
// status requires. Cache entries failing this check are treated as corrupt.
func (o TranscriptionOutcome) Valid() bool {
	switch o.Status {
	case StatusSuccess:
		return o.Transcript != nil
	case StatusNeedsFallback, StatusFailed:
		return true
	}
	return false
}
