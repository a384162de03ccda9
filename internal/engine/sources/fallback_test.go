package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// downloadRunner pretends to be yt-dlp extracting audio: it writes the
// output file named by the -o flag.
type downloadRunner struct {
	err   error
	calls int
}

func (d *downloadRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	d.calls++
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			if err := os.WriteFile(args[i+1], []byte("mp3-bytes"), 0o644); err != nil {
				return nil, err
			}
		}
	}
	return nil, d.err
}

type fakeSTT struct {
	text string
	err  error
	path string
}

func (f *fakeSTT) Transcribe(_ context.Context, audioPath, _ string) (string, error) {
	f.path = audioPath
	return f.text, f.err
}

func testVideo() engine.VideoDescriptor {
	return engine.VideoDescriptor{ID: "vid1", URL: "https://www.youtube.com/watch?v=vid1"}
}

func TestTranscriberSuccessCleansUp(t *testing.T) {
	dir := t.TempDir()
	engine.Init(engine.Config{AudioDir: dir})

	stt := &fakeSTT{text: "spoken words"}
	tr := &Transcriber{
		Downloader: &AudioDownloader{Runner: &downloadRunner{}},
		STT:        stt,
		Cleanup:    true,
	}

	got, err := tr.Transcribe(context.Background(), testVideo(), "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "spoken words" || got.Source != engine.SourceFallback {
		t.Errorf("transcript = %+v", got)
	}
	if len(got.Segments) != 0 {
		t.Errorf("fallback transcript must have no segments, got %d", len(got.Segments))
	}
	if _, err := os.Stat(stt.path); !os.IsNotExist(err) {
		t.Errorf("audio artifact %s not cleaned up", stt.path)
	}
}

func TestTranscriberKeepsAudioWithoutCleanup(t *testing.T) {
	dir := t.TempDir()
	engine.Init(engine.Config{AudioDir: dir})

	tr := &Transcriber{
		Downloader: &AudioDownloader{Runner: &downloadRunner{}},
		STT:        &fakeSTT{text: "words"},
		Cleanup:    false,
	}

	if _, err := tr.Transcribe(context.Background(), testVideo(), "en"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "vid1.mp3")); err != nil {
		t.Errorf("audio artifact missing: %v", err)
	}
}

func TestTranscriberCleansUpOnSTTFailure(t *testing.T) {
	dir := t.TempDir()
	engine.Init(engine.Config{AudioDir: dir})

	tr := &Transcriber{
		Downloader: &AudioDownloader{Runner: &downloadRunner{}},
		STT:        &fakeSTT{err: errors.New("whisper: HTTP 500")},
		Cleanup:    true,
	}

	if _, err := tr.Transcribe(context.Background(), testVideo(), "en"); err == nil {
		t.Fatal("expected STT error")
	}
	if _, err := os.Stat(filepath.Join(dir, "vid1.mp3")); !os.IsNotExist(err) {
		t.Error("audio artifact not removed after STT failure")
	}
}

func TestTranscriberCleansUpPartialDownload(t *testing.T) {
	dir := t.TempDir()
	engine.Init(engine.Config{AudioDir: dir})

	// Runner writes a partial file, then fails.
	tr := &Transcriber{
		Downloader: &AudioDownloader{Runner: &downloadRunner{err: errors.New("yt-dlp: exit status 1")}},
		STT:        &fakeSTT{},
		Cleanup:    true,
	}

	if _, err := tr.Transcribe(context.Background(), testVideo(), "en"); err == nil {
		t.Fatal("expected download error")
	}
	if _, err := os.Stat(filepath.Join(dir, "vid1.mp3")); !os.IsNotExist(err) {
		t.Error("partial download not removed")
	}
}

func TestDownloaderReusesExistingArtifact(t *testing.T) {
	dir := t.TempDir()
	engine.Init(engine.Config{AudioDir: dir})

	if err := os.WriteFile(filepath.Join(dir, "vid1.mp3"), []byte("cached-audio"), 0o644); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	runner := &downloadRunner{}
	d := &AudioDownloader{Runner: runner}
	path, err := d.Download(context.Background(), testVideo())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if runner.calls != 0 {
		t.Errorf("existing artifact must skip yt-dlp, got %d calls", runner.calls)
	}
	if path != filepath.Join(dir, "vid1.mp3") {
		t.Errorf("path = %q", path)
	}
}
