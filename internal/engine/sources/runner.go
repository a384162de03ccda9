package sources

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// CommandRunner abstracts subprocess execution so resolver and downloader
// logic can be tested without yt-dlp installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec, capturing stdout. Stderr is folded
// into the error since yt-dlp reports everything useful there.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := engine.TruncateRunes(strings.TrimSpace(stderr.String()), 500, "...")
		if msg == "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}
