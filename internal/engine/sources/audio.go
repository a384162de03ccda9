package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// AudioDownloader extracts a video's audio track to local disk via yt-dlp.
type AudioDownloader struct {
	Runner CommandRunner
}

// Download writes the video's audio as mp3 under engine.Cfg.AudioDir and
// returns the file path. An existing artifact is reused without spawning
// yt-dlp. On failure the path is still returned so the caller can clean up
// a partial file.
func (d *AudioDownloader) Download(ctx context.Context, video engine.VideoDescriptor) (string, error) {
	path := filepath.Join(engine.Cfg.AudioDir, video.ID+".mp3")

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}
	if err := os.MkdirAll(engine.Cfg.AudioDir, 0o755); err != nil {
		return path, fmt.Errorf("audio dir: %w", err)
	}

	engine.IncrAudioDownloads()

	runner := d.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.DownloadTimeout)
	defer cancel()

	url := video.URL
	if url == "" {
		url = "https://www.youtube.com/watch?v=" + video.ID
	}

	// Quality 5 keeps typical episode-length files under the STT upload limit.
	_, err := runner.Run(ctx, engine.Cfg.YTDLPPath,
		"-x", "--audio-format", "mp3", "--audio-quality", "5",
		"--no-playlist", "--quiet", "--no-warnings",
		"-o", path, url)
	if err != nil {
		engine.IncrAudioDownloadErrors()
		return path, fmt.Errorf("download audio %s: %w", video.ID, err)
	}
	return path, nil
}
