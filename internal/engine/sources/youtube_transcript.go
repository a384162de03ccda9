package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// Native YouTube transcript fetching.
// Primary:  ANDROID Innertube /player → captionTracks → timedtext XML
// Fallback: scrape the watch page ytInitialPlayerResponse when /player fails
//
// A video that plays fine but exposes no usable track in a requested language
// is engine.ErrNoTranscript; transport and parse failures are ordinary errors.

// TranscriptFetcher fetches native captions. Zero value is ready to use.
type TranscriptFetcher struct{}

// Fetch returns the transcript in the first requested language that has a
// usable caption track.
func (TranscriptFetcher) Fetch(ctx context.Context, video engine.VideoDescriptor, langs []string) (engine.Transcript, error) {
	engine.IncrNativeFetches()

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	tracks, err := playerTracks(ctx, video.ID)
	if err != nil {
		slog.Debug("player endpoint failed, scraping watch page",
			slog.String("video", video.ID), slog.Any("error", err))
		tracks, err = watchPageTracks(ctx, video.ID)
		if err != nil {
			return engine.Transcript{}, err
		}
	}

	track, ok := pickTrack(tracks, langs)
	if !ok {
		return engine.Transcript{}, engine.ErrNoTranscript
	}

	segments, err := fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return engine.Transcript{}, err
	}
	if len(segments) == 0 {
		return engine.Transcript{}, errors.New("empty timedtext document")
	}
	return engine.NewTranscript(video.ID, track.LanguageCode, engine.SourceNative, segments), nil
}

// playerTracks lists caption tracks via the ANDROID /player endpoint.
func playerTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	resp, err := postPlayer(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if resp.PlayabilityStatus != nil && resp.PlayabilityStatus.Status != "" && resp.PlayabilityStatus.Status != "OK" {
		return nil, fmt.Errorf("video not playable: %s (%s)",
			resp.PlayabilityStatus.Status, resp.PlayabilityStatus.Reason)
	}
	if resp.Captions == nil {
		return nil, nil
	}
	return resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// watchPageTracks scrapes the watch page HTML and extracts caption tracks
// from the embedded ytInitialPlayerResponse.
func watchPageTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID

	resp, err := engine.RetryHTTP(ctx, engine.Cfg.Retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	idx := strings.Index(string(body), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	if playerResp.Captions == nil {
		return nil, nil
	}
	return playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects a usable caption track honoring the caller's language
// priority: within each language a manual track beats an auto-generated one,
// but a lower-priority language is never substituted for a missing
// higher-priority one's manual/asr preference. No cross-language fallback:
// a video with tracks only in unrequested languages has no usable transcript.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	for _, lang := range langs {
		var auto *captionTrack
		for i, t := range usable {
			if t.LanguageCode != lang {
				continue
			}
			if t.Kind != "asr" {
				return t, true
			}
			if auto == nil {
				auto = &usable[i]
			}
		}
		if auto != nil {
			return *auto, true
		}
	}
	return captionTrack{}, false
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL into
// ordered segments.
func fetchTimedText(ctx context.Context, baseURL string) ([]engine.TranscriptSegment, error) {
	engine.IncrTimedTextFetches()

	resp, err := engine.RetryHTTP(ctx, engine.Cfg.Retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// parseTimedText decodes timedtext XML, stripping formatting tags from the
// caption lines and dropping empty ones.
func parseTimedText(body []byte) ([]engine.TranscriptSegment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segments := make([]engine.TranscriptSegment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := engine.CleanHTML(line.Text)
		if text == "" {
			continue
		}
		segments = append(segments, engine.TranscriptSegment{
			Start:    line.Start,
			Duration: line.Duration,
			Text:     text,
		})
	}
	return segments, nil
}
