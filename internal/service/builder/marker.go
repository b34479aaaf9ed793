package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/spf13/afero"

	"github.com/oshokin/pavr2-macos-builder/internal/logger"
)

// ErrBuildInProgress is returned when another live builder owns the working directory.
var ErrBuildInProgress = errors.New("another build is running in this directory")

const (
	// markerClaimAttempts bounds how often a stale marker is reclaimed before giving up.
	markerClaimAttempts = 2
	// markerWriteGrace is how long an empty marker counts as a claim whose PID is still being written.
	markerWriteGrace = 30 * time.Second
)

// marker is a PID file that keeps two builders from staging into the same tree.
type marker struct {
	// fs is the filesystem holding the marker.
	fs afero.Fs
	// path is the marker location inside the working directory.
	path string
}

// acquireMarker claims the working directory, reclaiming markers left by dead processes.
// The claim itself is an exclusive create, so only one concurrent builder can win it.
func acquireMarker(ctx context.Context, fs afero.Fs, path string) (*marker, error) {
	for attempt := 0; attempt < markerClaimAttempts; attempt++ {
		err := createMarker(fs, path)
		if err == nil {
			return &marker{fs: fs, path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("write build marker: %w", err)
		}

		if err = reclaimStaleMarker(ctx, fs, path); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w (marker %s keeps reappearing)", ErrBuildInProgress, path)
}

// createMarker exclusively creates the marker and stores the current PID in it.
func createMarker(fs afero.Fs, path string) error {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePermissions)
	if err != nil {
		return err
	}

	if _, err = f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

// reclaimStaleMarker removes an existing marker unless its owner may still be running.
func reclaimStaleMarker(ctx context.Context, fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("stat build marker: %w", err)
	}

	contents, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("read build marker: %w", err)
	}

	owner := strings.TrimSpace(string(contents))

	if owner == "" && time.Since(info.ModTime()) < markerWriteGrace {
		return fmt.Errorf("%w (marker %s is being written)", ErrBuildInProgress, path)
	}

	if pid, parseErr := strconv.Atoi(owner); parseErr == nil && isProcessAlive(pid) {
		return fmt.Errorf("%w (pid %d, marker %s)", ErrBuildInProgress, pid, path)
	}

	logger.WarnKV(ctx, "Removing stale build marker", "path", path, "contents", owner)

	if err = fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale build marker: %w", err)
	}

	return nil
}

// release removes the marker; failures are only logged.
func (m *marker) release(ctx context.Context) {
	if err := m.fs.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove build marker", "path", m.path, "error", err)
	}
}

// isProcessAlive reports whether pid belongs to a running process, including this one.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	if pid == os.Getpid() {
		return true
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		// Unknown is treated as alive so a running build is never clobbered.
		return true
	}

	return process != nil
}
