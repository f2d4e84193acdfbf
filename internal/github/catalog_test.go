package github

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestCatalog wires a catalog to a local test server.
func newTestCatalog(server *httptest.Server) *Catalog {
	return NewCatalog("F5Networks/f5-appsvcs-extension",
		WithBaseURL(server.URL), WithHTTPClient(server.Client()))
}

// TestReleases verifies listing, header shape, and JSON decoding.
func TestReleases(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/releases", r.URL.Path)
		require.Equal(t, "as3ctl", r.Header.Get("User-Agent"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		_, _ = w.Write([]byte(`[
			{"id": 222, "name": "v3.17.0", "assets": []},
			{"id": 111, "name": "v3.16.0", "assets": [{"id": 9, "name": "f5-appsvcs-3.16.0.rpm", "size": 4}]}
		]`))
	}))
	defer server.Close()

	releases, err := newTestCatalog(server).Releases(context.Background())
	require.NoError(t, err)
	require.Len(t, releases, 2)
	require.Equal(t, int64(111), releases[1].ID)
	require.Equal(t, "f5-appsvcs-3.16.0.rpm", releases[1].Assets[0].Name)
}

// TestLatestRelease checks the latest pointer fetch.
func TestLatestRelease(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/releases/latest", r.URL.Path)

		_, _ = w.Write([]byte(`{"id": 111, "name": "v3.16.0"}`))
	}))
	defer server.Close()

	release, err := newTestCatalog(server).LatestRelease(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(111), release.ID)
	require.Equal(t, "v3.16.0", release.Name)
}

// TestRelease_BadStatus ensures non-200 answers surface as errors carrying the code.
func TestRelease_BadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestCatalog(server).Release(context.Background(), 111)
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

// TestDownloadAsset verifies the octet-stream Accept header and streamed body.
func TestDownloadAsset(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/releases/assets/9", r.URL.Path)
		require.Equal(t, "application/octet-stream", r.Header.Get("Accept"))

		_, _ = w.Write([]byte("rpm-bytes"))
	}))
	defer server.Close()

	var dst bytes.Buffer

	asset := Asset{ID: 9, Name: "f5-appsvcs-3.16.0.rpm"}
	err := newTestCatalog(server).DownloadAsset(context.Background(), asset, &dst)
	require.NoError(t, err)
	require.Equal(t, "rpm-bytes", dst.String())
}
