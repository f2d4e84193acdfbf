package lifecycle

import (
	"context"
	"fmt"

	"github.com/f5devkit/as3ctl/internal/logger"
	"github.com/f5devkit/as3ctl/internal/repository/history"
)

// Uninstall removes the currently installed AS3 package. The canonical
// package name is derived from the reported version and release; without
// both fields there is nothing addressable to remove.
func (m *Manager) Uninstall(ctx context.Context) error {
	if err := m.acquireRunMarker(ctx); err != nil {
		return err
	}

	defer m.releaseRunMarker(ctx)

	device, err := m.ensureDevice(ctx)
	if err != nil {
		return err
	}

	info, err := m.InstalledPackage(ctx)
	if err != nil {
		return err
	}

	if info == nil || info.Version == "" || info.Release == "" {
		return newError(KindNotInstalled,
			"AS3 is not installed on %s or reports no version and release", m.cfg.Host)
	}

	packageName := fmt.Sprintf("%s-%s-%s.noarch", packagePrefix, info.Version, info.Release)

	body := map[string]string{
		"operation":   "UNINSTALL",
		"packageName": packageName,
	}

	resp, err := device.Create(ctx, taskPath, body)
	if err != nil || resp == nil {
		return wrapError(KindTaskSubmission, err, "submit uninstall task for %s", packageName)
	}

	logger.InfoKV(ctx, "Uninstall task submitted", "package", packageName)

	err = m.waitForState(ctx,
		func(_ *PackageInfo, installed bool) bool {
			return !installed
		},
		func(attempts int) *Error {
			return newError(KindPending,
				"package %s still reported installed after %d attempts; the uninstall task may still be running",
				packageName, attempts)
		},
	)

	m.recordHistory(ctx, history.Record{
		Operation: history.OperationUninstall,
		Package:   packageName,
		Version:   info.Version,
		Succeeded: err == nil,
	})

	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Package uninstalled", "package", packageName, "host", m.cfg.Host)

	return nil
}
