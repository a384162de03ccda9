package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// Video listing via yt-dlp flat extraction.
// One subprocess per run; output is parsed and yielded line by line so the
// orchestrator can start working before the full list is materialized.

// Source describes where the videos come from. Exactly one of Channel,
// Playlist, IDs, Query must be set.
type Source struct {
	Channel  string   // channel URL or @handle
	Playlist string   // playlist URL or bare playlist ID
	IDs      []string // explicit video IDs, no subprocess needed
	Query    string   // search terms

	MaxResults int // search only; capped result count
	StartFrom  int // skip the first N resolved videos

	Runner CommandRunner
}

// Validate checks that exactly one source kind is configured.
func (s *Source) Validate() error {
	n := 0
	if s.Channel != "" {
		n++
	}
	if s.Playlist != "" {
		n++
	}
	if len(s.IDs) > 0 {
		n++
	}
	if s.Query != "" {
		n++
	}
	if n == 0 {
		return errors.New("no video source configured")
	}
	if n > 1 {
		return errors.New("multiple video sources configured, want exactly one")
	}
	return nil
}

// Ref returns the human-readable reference for error reporting.
func (s *Source) Ref() string {
	switch {
	case s.Channel != "":
		return s.Channel
	case s.Playlist != "":
		return s.Playlist
	case s.Query != "":
		return s.Query
	default:
		return strings.Join(s.IDs, ",")
	}
}

// target builds the yt-dlp URL/expression for this source.
func (s *Source) target() string {
	switch {
	case s.Channel != "":
		ch := s.Channel
		if !strings.HasPrefix(ch, "http") {
			ch = "https://www.youtube.com/" + strings.TrimPrefix(ch, "/")
		}
		return strings.TrimSuffix(ch, "/") + "/videos"
	case s.Playlist != "":
		if strings.HasPrefix(s.Playlist, "http") {
			return s.Playlist
		}
		return "https://www.youtube.com/playlist?list=" + s.Playlist
	default:
		max := s.MaxResults
		if max <= 0 {
			max = 50
		}
		return fmt.Sprintf("ytsearch%d:%s", max, s.Query)
	}
}

// Resolve turns the source into a lazy sequence of video descriptors in the
// platform's listing order. A yielded error is a *engine.ResolutionError and
// terminates the sequence.
func (s *Source) Resolve(ctx context.Context) iter.Seq2[engine.VideoDescriptor, error] {
	return func(yield func(engine.VideoDescriptor, error) bool) {
		engine.IncrResolveRequests()

		if err := s.Validate(); err != nil {
			yield(engine.VideoDescriptor{}, &engine.ResolutionError{Ref: s.Ref(), Err: err})
			return
		}

		if len(s.IDs) > 0 {
			s.yieldIDs(yield)
			return
		}

		runner := s.Runner
		if runner == nil {
			runner = ExecRunner{}
		}

		ctx, cancel := context.WithTimeout(ctx, engine.Cfg.ResolveTimeout)
		defer cancel()

		out, err := runner.Run(ctx, engine.Cfg.YTDLPPath,
			"--flat-playlist", "--dump-json", "--no-warnings", s.target())
		if err != nil {
			yield(engine.VideoDescriptor{}, &engine.ResolutionError{Ref: s.Ref(), Err: err})
			return
		}

		skipped, yielded := 0, 0
		for line := range bytes.Lines(out) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			video, err := parseFlatEntry(line)
			if err != nil {
				slog.Warn("skipping unparseable listing entry", slog.Any("error", err))
				continue
			}
			if skipped < s.StartFrom {
				skipped++
				continue
			}
			if !yield(video, nil) {
				return
			}
			yielded++
		}
		slog.Info("source resolved",
			slog.String("ref", s.Ref()), slog.Int("videos", yielded), slog.Int("skipped", skipped))
	}
}

// yieldIDs serves explicit video IDs without touching the network.
func (s *Source) yieldIDs(yield func(engine.VideoDescriptor, error) bool) {
	skipped := 0
	for _, id := range s.IDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if skipped < s.StartFrom {
			skipped++
			continue
		}
		v := engine.VideoDescriptor{
			ID:  id,
			URL: "https://www.youtube.com/watch?v=" + id,
		}
		if !yield(v, nil) {
			return
		}
	}
}

// flatEntry is one line of yt-dlp --flat-playlist --dump-json output.
type flatEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Duration   float64 `json:"duration"`
	UploadDate string  `json:"upload_date"`
}

func parseFlatEntry(line []byte) (engine.VideoDescriptor, error) {
	var e flatEntry
	if err := json.Unmarshal(line, &e); err != nil {
		return engine.VideoDescriptor{}, fmt.Errorf("listing entry: %w", err)
	}
	if e.ID == "" {
		return engine.VideoDescriptor{}, errors.New("listing entry without id")
	}
	url := e.URL
	if url == "" {
		url = e.WebpageURL
	}
	if url == "" {
		url = "https://www.youtube.com/watch?v=" + e.ID
	}
	return engine.VideoDescriptor{
		ID:              e.ID,
		Title:           e.Title,
		URL:             url,
		DurationSeconds: e.Duration,
		PublishedAt:     e.UploadDate,
		EpisodeNumber:   episodeNumber(e.Title),
	}, nil
}

// episodeNumberRe matches common episode markers: "Episode 42", "Ep. 42",
// "Ep 42", "E42", "#42".
var episodeNumberRe = regexp.MustCompile(`(?i)\b(?:episode|ep\.?|e)\s*#?\s*(\d{1,4})\b|#(\d{1,4})\b`)

// episodeNumber extracts an episode number from a video title, 0 if absent.
func episodeNumber(title string) int {
	m := episodeNumberRe.FindStringSubmatch(title)
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if g != "" {
			n, err := strconv.Atoi(g)
			if err == nil {
				return n
			}
		}
	}
	return 0
}
