package engine

import "strings"

// --- Video metadata ---

// VideoDescriptor identifies one video independent of its transcript.
// Produced by the resolver; consumed read-only downstream.
type VideoDescriptor struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	PublishedAt     string  `json:"published_at,omitempty"`
	EpisodeNumber   int     `json:"episode_number,omitempty"`
}

// --- Transcripts ---

// TranscriptSource tells where a transcript came from.
type TranscriptSource string

const (
	SourceNative   TranscriptSource = "native"   // platform captions, free to retrieve
	SourceFallback TranscriptSource = "fallback" // paid speech-to-text on downloaded audio
)

// TranscriptSegment is one timed piece of a native transcript.
// Segments are ordered by Start, monotonically non-decreasing.
type TranscriptSegment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Transcript is the full transcript for one video. Immutable once built:
// Text is derived from the segments at construction and never edited after.
type Transcript struct {
	VideoID  string              `json:"video_id"`
	Text     string              `json:"text"`
	Language string              `json:"language"`
	Source   TranscriptSource    `json:"source"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
}

// NewTranscript builds a Transcript from ordered segments, deriving Text by
// whitespace-joining the segment text. Whitespace-only segments are dropped
// so Text is non-empty whenever Segments is.
func NewTranscript(videoID, language string, source TranscriptSource, segments []TranscriptSegment) Transcript {
	kept := make([]TranscriptSegment, 0, len(segments))
	var sb strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
		seg.Text = text
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		kept = nil
	}
	return Transcript{
		VideoID:  videoID,
		Text:     sb.String(),
		Language: language,
		Source:   source,
		Segments: kept,
	}
}

// NewTextTranscript builds a segment-less Transcript. The fallback speech-to-text
// path returns concatenated text only; segment-level timing is not available there.
func NewTextTranscript(videoID, language string, source TranscriptSource, text string) Transcript {
	return Transcript{
		VideoID:  videoID,
		Text:     strings.TrimSpace(text),
		Language: language,
		Source:   source,
	}
}
