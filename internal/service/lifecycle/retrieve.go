package lifecycle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sassoftware/go-rpmutils"
	"github.com/schollz/progressbar/v3"

	"github.com/f5devkit/as3ctl/internal/github"
	"github.com/f5devkit/as3ctl/internal/logger"
)

// notesFilePermissions applies to release notes and downloaded packages.
const notesFilePermissions = 0o644

// digestExtension names the optional checksum asset accompanying a package.
const digestExtension = ".sha256"

// RetrieveVersion downloads the package asset of the given release into the
// configured download directory and returns its local path. A zero id means
// "the latest release": the latest pointer is resolved first and the call
// recurses exactly once with the resolved id. The release notes are persisted
// alongside the package as release-notes-<name>.txt.
func (m *Manager) RetrieveVersion(ctx context.Context, releaseID int64) (string, error) {
	if releaseID == 0 {
		latest, err := m.catalog.LatestRelease(ctx)
		if err != nil {
			return "", wrapError(KindHTTP, err, "resolve latest release")
		}

		// A zero id would loop right back here.
		if latest.ID == 0 {
			return "", newError(KindHTTP, "latest release %q carries no id", latest.Name)
		}

		logger.InfoKV(ctx, "Resolved latest release", "name", latest.Name, "id", latest.ID)

		return m.RetrieveVersion(ctx, latest.ID)
	}

	release, err := m.catalog.Release(ctx, releaseID)
	if err != nil {
		return "", wrapError(KindHTTP, err, "fetch release %d", releaseID)
	}

	logger.InfoKV(ctx, "Retrieving release", "name", release.Name, "id", release.ID)

	if err = m.writeReleaseNotes(release); err != nil {
		return "", err
	}

	asset, found := findPackageAsset(release)
	if !found {
		return "", newError(KindResolution, "release %s carries no %s asset", release.Name, packageExtension)
	}

	localPath := filepath.Join(m.cfg.DownloadDir, asset.Name)
	if err = m.downloadAsset(ctx, asset, localPath); err != nil {
		return "", err
	}

	if err = m.verifyDigest(ctx, release, asset, localPath); err != nil {
		return "", err
	}

	m.inspectPackage(ctx, localPath)

	return localPath, nil
}

// writeReleaseNotes persists the release body next to the download.
func (m *Manager) writeReleaseNotes(release *github.Release) error {
	notesPath := filepath.Join(m.cfg.DownloadDir, fmt.Sprintf("release-notes-%s.txt", release.Name))
	if err := os.WriteFile(notesPath, []byte(release.Body), notesFilePermissions); err != nil {
		return wrapError(KindResolution, err, "write release notes for %s", release.Name)
	}

	return nil
}

// findPackageAsset returns the first asset whose name carries the package
// extension; catalog order decides ties.
func findPackageAsset(release *github.Release) (github.Asset, bool) {
	for _, asset := range release.Assets {
		if strings.HasSuffix(asset.Name, packageExtension) {
			return asset, true
		}
	}

	return github.Asset{}, false
}

// downloadAsset streams the asset to disk, showing progress when enabled.
func (m *Manager) downloadAsset(ctx context.Context, asset github.Asset, localPath string) error {
	file, err := os.OpenFile(filepath.Clean(localPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, notesFilePermissions)
	if err != nil {
		return wrapError(KindResolution, err, "create %s", localPath)
	}

	var dst io.Writer = file
	if m.progress && asset.Size > 0 {
		bar := progressbar.DefaultBytes(asset.Size, "downloading "+asset.Name)
		dst = io.MultiWriter(file, bar)
	}

	if err = m.catalog.DownloadAsset(ctx, asset, dst); err != nil {
		_ = file.Close()
		_ = os.Remove(localPath)

		return wrapError(KindHTTP, err, "download %s", asset.Name)
	}

	if err = file.Close(); err != nil {
		return wrapError(KindResolution, err, "finish writing %s", localPath)
	}

	logger.InfoKV(ctx, "Package downloaded", "file", localPath, "asset_id", asset.ID)

	return nil
}

// verifyDigest checks the package against its published SHA-256 when the
// release carries a companion digest asset; a missing digest is tolerated.
func (m *Manager) verifyDigest(ctx context.Context, release *github.Release, packageAsset github.Asset, localPath string) error {
	var digestAsset github.Asset

	for _, asset := range release.Assets {
		if asset.Name == packageAsset.Name+digestExtension {
			digestAsset = asset
			break
		}
	}

	if digestAsset.Name == "" {
		logger.DebugKV(ctx, "Release carries no digest asset, skipping verification",
			"release", release.Name)

		return nil
	}

	var digestBody bytes.Buffer
	if err := m.catalog.DownloadAsset(ctx, digestAsset, &digestBody); err != nil {
		return wrapError(KindHTTP, err, "download digest %s", digestAsset.Name)
	}

	fields := strings.Fields(digestBody.String())
	if len(fields) == 0 {
		return newError(KindVerification, "digest asset %s is empty", digestAsset.Name)
	}

	want := strings.ToLower(fields[0])

	got, err := fileSHA256(localPath)
	if err != nil {
		return wrapError(KindVerification, err, "hash %s", localPath)
	}

	if got != want {
		return newError(KindVerification,
			"digest mismatch for %s: got %s, want %s", packageAsset.Name, got, want)
	}

	logger.InfoKV(ctx, "Package digest verified", "file", packageAsset.Name)

	return nil
}

// fileSHA256 returns the lowercase hex SHA-256 of a file.
func fileSHA256(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// inspectPackage reads the RPM header and logs its NEVRA, returning the
// version when readable. Parsing problems are reported but never fatal:
// the device performs the authoritative validation on install.
func (m *Manager) inspectPackage(ctx context.Context, localPath string) string {
	file, err := os.Open(filepath.Clean(localPath))
	if err != nil {
		logger.WarnKV(ctx, "Unable to open package for inspection", "file", localPath, "error", err)
		return ""
	}

	defer func() {
		_ = file.Close()
	}()

	pkg, err := rpmutils.ReadRpm(file)
	if err != nil {
		logger.WarnKV(ctx, "Unable to parse package header", "file", localPath, "error", err)
		return ""
	}

	nevra, err := pkg.Header.GetNEVRA()
	if err != nil {
		logger.WarnKV(ctx, "Package header carries no NEVRA", "file", localPath, "error", err)
		return ""
	}

	logger.InfoKV(ctx, "Package inspected",
		"name", nevra.Name, "version", nevra.Version, "release", nevra.Release, "arch", nevra.Arch)

	return nevra.Version
}
