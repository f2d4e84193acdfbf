package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/f5devkit/as3ctl/internal/logger"
)

const (
	// markerFilename marks that an install or uninstall is running right now
	// to avoid two workflows racing against the same device.
	markerFilename = "as3ctl-run-marker.bin"

	// markerLifetime is the period after which a stale marker is reclaimed.
	markerLifetime = 30 * time.Second
)

// errAlreadyRunning indicates a concurrent lifecycle operation in this directory.
var errAlreadyRunning = errors.New("another lifecycle operation is already running")

// markerPath places the marker next to the downloads so that independent
// working directories do not block each other.
func (m *Manager) markerPath() string {
	return filepath.Join(m.cfg.DownloadDir, markerFilename)
}

// acquireRunMarker creates the run marker, refusing when a fresh one exists.
func (m *Manager) acquireRunMarker(ctx context.Context) error {
	if m.isRunMarkerFresh(ctx) {
		return errAlreadyRunning
	}

	marker, err := os.Create(m.markerPath())
	if err != nil {
		return err
	}

	return marker.Close()
}

// releaseRunMarker removes the marker once the operation finished.
func (m *Manager) releaseRunMarker(ctx context.Context) {
	if err := os.Remove(m.markerPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run marker", "error", err)
	}
}

// isRunMarkerFresh checks the marker's presence and attempts recovery when it
// looks stale: leftover processes are terminated and the marker removed.
func (m *Manager) isRunMarkerFresh(ctx context.Context) bool {
	fileInfo, err := os.Stat(m.markerPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false
		}

		logger.WarnKV(ctx, "Unable to read run marker", "error", err)

		return false
	}

	if time.Since(fileInfo.ModTime()) <= markerLifetime {
		return true
	}

	logger.Info(ctx, "The run marker is too old, attempting cleanup")

	if err = terminateProcessByName(filepath.Base(os.Args[0])); err != nil {
		return true
	}

	if err = os.Remove(m.markerPath()); err != nil {
		return true
	}

	return false
}

// terminateProcessByName kills other processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}
