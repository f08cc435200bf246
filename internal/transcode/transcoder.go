// Package transcode manages on-demand external transcode jobs and the
// cache that shares them across concurrent requests.
package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"
)

// Options configure how a Transcoder invokes the external encoder.
type Options struct {
	Bitrate    string
	SampleRate string
	Channels   string
	// Command overrides the encoder binary, defaulting to "ffmpeg". Tests
	// substitute a small stand-in script that writes bytes to its last
	// argument without needing a real ffmpeg on the test machine.
	Command string
}

// Transcoder encapsulates one external transcode job: a child process
// writing to a private temp file, with a Running/Finished lifecycle and
// reference-counted teardown.
type Transcoder struct {
	Fingerprint string
	SourcePath  string
	TargetExt   string
	OutputPath  string

	cmd *exec.Cmd

	finished atomic.Bool

	refs   atomic.Int32
	onZero func()
}

// spawn starts the external transcoder for sourcePath, writing to
// outputPath, and returns a Transcoder tracking it. Any stale file at
// outputPath is removed first so a previous crashed run never leaks bytes
// into a fresh job.
func spawn(fingerprint, sourcePath, targetExt, outputPath string, opts Options) (*Transcoder, error) {
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale output %s: %w", outputPath, err)
	}

	args := []string{"-y", "-i", sourcePath, "-vn"}
	switch targetExt {
	case ".mp3":
		args = append(args, "-codec:a", "libmp3lame", "-b:a", opts.Bitrate)
	case ".ogg":
		args = append(args, "-codec:a", "libvorbis", "-b:a", opts.Bitrate)
	default:
		return nil, fmt.Errorf("unsupported transcode target %q", targetExt)
	}
	if opts.SampleRate != "" {
		args = append(args, "-ar", opts.SampleRate)
	}
	if opts.Channels != "" {
		args = append(args, "-ac", opts.Channels)
	}
	// flush_packets keeps the muxer from batching writes, so the first
	// bytes land on disk within a second or two even on slow hardware.
	args = append(args, "-flush_packets", "1", outputPath)

	command := opts.Command
	if command == "" {
		command = "ffmpeg"
	}
	cmd := exec.Command(command, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start transcoder: %w", err)
	}

	t := &Transcoder{
		Fingerprint: fingerprint,
		SourcePath:  sourcePath,
		TargetExt:   targetExt,
		OutputPath:  outputPath,
		cmd:         cmd,
	}
	go t.wait()
	return t, nil
}

// wait blocks until the child exits and latches the Finished state. It
// runs for the lifetime of the Transcoder in its own goroutine so
// IsFinished never blocks.
func (t *Transcoder) wait() {
	_ = t.cmd.Wait()
	t.finished.Store(true)
}

// IsFinished reports whether the child process has exited. Idempotent and
// safe to poll from any goroutine.
func (t *Transcoder) IsFinished() bool {
	return t.finished.Load()
}

// AwaitOutputExists blocks, polling every 100ms, until OutputPath exists on
// disk or timeout elapses. Returns false on timeout or context
// cancellation, bridging the gap between spawn and first write.
func (t *Transcoder) AwaitOutputExists(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	if _, err := os.Stat(t.OutputPath); err == nil {
		return true
	}
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if _, err := os.Stat(t.OutputPath); err == nil {
				return true
			}
			if time.Now().After(deadline) {
				return false
			}
		}
	}
}

// acquire adds one strong reference. Every caller that obtains a
// Transcoder pointer (directly or via a retention list) must hold exactly
// one reference until it calls Release.
func (t *Transcoder) acquire() {
	t.refs.Add(1)
}

// Release drops one strong reference. When the last reference drops, the
// Transcoder terminates its child (if still running) and unlinks its
// output file.
func (t *Transcoder) Release() {
	if t.refs.Add(-1) == 0 {
		if t.onZero != nil {
			t.onZero()
		}
		t.destroy()
	}
}

// destroy terminates the child process, if still running, with a graceful
// signal rather than an immediate kill, then unlinks the output file
// unconditionally. Both steps are best-effort: a process that already
// exited or a file that's already gone are not errors.
func (t *Transcoder) destroy() {
	if !t.IsFinished() && t.cmd.Process != nil {
		if err := t.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			slog.Debug("transcode: signal failed", "fingerprint", t.Fingerprint, "error", err)
		}
	}
	if err := os.Remove(t.OutputPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("transcode: could not remove output file", "path", t.OutputPath, "error", err)
	}
}
