package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f5devkit/as3ctl/internal/github"
)

// TestRetrieveVersion_Latest covers the end-to-end scenario: the latest
// pointer resolves to release 111, whose notes land on disk and whose RPM
// asset is downloaded under its remote name.
func TestRetrieveVersion_Latest(t *testing.T) {
	t.Parallel()

	release := &github.Release{
		ID:   111,
		Name: "v3.16.0",
		Body: "notes",
		Assets: []github.Asset{
			{ID: 9, Name: "f5-appsvcs-3.16.0.rpm", Size: 9},
		},
	}
	catalog := &fakeCatalog{
		latest:    release,
		byID:      map[int64]*github.Release{111: release},
		assetData: map[int64][]byte{9: []byte("rpm-bytes")},
	}
	manager := testManager(t, &fakeDevice{}, catalog)

	localPath, err := manager.RetrieveVersion(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "f5-appsvcs-3.16.0.rpm", filepath.Base(localPath))

	content, err := os.ReadFile(localPath)
	require.NoError(t, err)
	require.Equal(t, "rpm-bytes", string(content))

	notes, err := os.ReadFile(filepath.Join(manager.cfg.DownloadDir, "release-notes-v3.16.0.txt"))
	require.NoError(t, err)
	require.Equal(t, "notes", string(notes))

	// An explicit id must yield the same artifact.
	explicitPath, err := manager.RetrieveVersion(context.Background(), 111)
	require.NoError(t, err)
	require.Equal(t, localPath, explicitPath)
}

// TestRetrieveVersion_SelectsFirstPackageAsset ignores non-package assets and
// picks the first name carrying the package extension.
func TestRetrieveVersion_SelectsFirstPackageAsset(t *testing.T) {
	t.Parallel()

	release := &github.Release{
		ID:   42,
		Name: "v1.0.0",
		Assets: []github.Asset{
			{ID: 1, Name: "notes.txt"},
			{ID: 2, Name: "pkg-1.0.rpm"},
			{ID: 3, Name: "pkg-other.rpm"},
		},
	}
	catalog := &fakeCatalog{
		byID:      map[int64]*github.Release{42: release},
		assetData: map[int64][]byte{2: []byte("first")},
	}
	manager := testManager(t, &fakeDevice{}, catalog)

	localPath, err := manager.RetrieveVersion(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "pkg-1.0.rpm", filepath.Base(localPath))
}

// TestRetrieveVersion_LatestWithoutID fails instead of re-resolving the
// latest pointer when the catalog answers with a zero release id.
func TestRetrieveVersion_LatestWithoutID(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{
		latest: &github.Release{Name: "v3.16.0"},
	}
	manager := testManager(t, &fakeDevice{}, catalog)

	_, err := manager.RetrieveVersion(context.Background(), 0)
	require.Error(t, err)
	require.Equal(t, KindHTTP, KindOf(err))
}

// TestRetrieveVersion_NoPackageAsset reports a resolution failure.
func TestRetrieveVersion_NoPackageAsset(t *testing.T) {
	t.Parallel()

	release := &github.Release{
		ID:     43,
		Name:   "v1.0.1",
		Assets: []github.Asset{{ID: 1, Name: "notes.txt"}},
	}
	catalog := &fakeCatalog{byID: map[int64]*github.Release{43: release}}
	manager := testManager(t, &fakeDevice{}, catalog)

	_, err := manager.RetrieveVersion(context.Background(), 43)
	require.Error(t, err)
	require.Equal(t, KindResolution, KindOf(err))
}

// TestRetrieveVersion_DigestVerification checks both digest outcomes.
func TestRetrieveVersion_DigestVerification(t *testing.T) {
	t.Parallel()

	payload := []byte("rpm-bytes")
	sum := sha256.Sum256(payload)
	goodDigest := hex.EncodeToString(sum[:]) + "  f5-appsvcs-3.16.0.rpm"

	newCatalog := func(digest string) *fakeCatalog {
		release := &github.Release{
			ID:   111,
			Name: "v3.16.0",
			Assets: []github.Asset{
				{ID: 9, Name: "f5-appsvcs-3.16.0.rpm"},
				{ID: 10, Name: "f5-appsvcs-3.16.0.rpm.sha256"},
			},
		}

		return &fakeCatalog{
			byID: map[int64]*github.Release{111: release},
			assetData: map[int64][]byte{
				9:  payload,
				10: []byte(digest),
			},
		}
	}

	// Matching digest passes.
	manager := testManager(t, &fakeDevice{}, newCatalog(goodDigest))

	_, err := manager.RetrieveVersion(context.Background(), 111)
	require.NoError(t, err)

	// Mismatching digest is a verification failure.
	manager = testManager(t, &fakeDevice{}, newCatalog("deadbeef"))

	_, err = manager.RetrieveVersion(context.Background(), 111)
	require.Error(t, err)
	require.Equal(t, KindVerification, KindOf(err))
}
