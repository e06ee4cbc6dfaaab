// Package transcode converts uploaded audio into recognizer-ready wav with ffmpeg.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// FFmpeg shells out to an ffmpeg binary.
type FFmpeg struct {
	binary string
}

// Option configures the transcoder.
type Option func(*FFmpeg)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if strings.TrimSpace(binary) != "" {
			f.binary = strings.TrimSpace(binary)
		}
	}
}

func New(opts ...Option) *FFmpeg {
	f := &FFmpeg{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FFmpeg) Binary() string { return f.binary }

// Available reports whether the configured binary resolves on PATH.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.binary)
	return err == nil
}

// ToWav writes a mono 16kHz PCM wav of src to dst, overwriting dst.
func (f *FFmpeg) ToWav(ctx context.Context, src, dst string) error {
	if src == "" {
		return errors.New("source path required")
	}
	if dst == "" {
		return errors.New("destination path required")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dst,
	}
	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
