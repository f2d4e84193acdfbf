package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Release is a published release as reported by the catalog.
type Release struct {
	// ID is the numeric release identifier (not the human name).
	ID int64 `json:"id"`
	// Name is the human release name, e.g. "v3.16.0".
	Name string `json:"name"`
	// Body carries the release notes text.
	Body string `json:"body"`
	// Assets lists downloadable artifacts in catalog order.
	Assets []Asset `json:"assets"`
}

// Asset is a downloadable artifact attached to a release.
type Asset struct {
	// ID is the numeric asset identifier used for binary downloads.
	ID int64 `json:"id"`
	// Name is the artifact filename, e.g. "f5-appsvcs-3.16.0-6.noarch.rpm".
	Name string `json:"name"`
	// Size is the artifact size in bytes when the catalog reports it.
	Size int64 `json:"size"`
}

// Catalog is a client for a GitHub-style releases API.
type Catalog struct {
	// baseURL is the repository releases prefix, without a trailing slash.
	baseURL string
	// userAgent identifies this client; GitHub rejects anonymous agents.
	userAgent string
	// httpClient performs the underlying requests.
	httpClient *http.Client
}

// Option configures catalog behaviour.
type Option func(*Catalog)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Catalog) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Catalog) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Catalog) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

const (
	// defaultUserAgent identifies the tool to the releases API.
	defaultUserAgent = "as3ctl"

	// requestTimeout bounds every catalog call.
	requestTimeout = 10 * time.Second

	// downloadBufferSize is the copy buffer used when streaming assets.
	downloadBufferSize = 1024
)

// errUnexpectedStatus is returned on non-200 answers from the catalog.
var errUnexpectedStatus = errors.New("unexpected catalog response status")

// NewCatalog builds a client for the given "owner/name" repository.
func NewCatalog(repository string, opts ...Option) *Catalog {
	c := &Catalog{
		baseURL:   fmt.Sprintf("https://api.github.com/repos/%s", repository),
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Releases lists all published releases, newest first.
func (c *Catalog) Releases(ctx context.Context) ([]Release, error) {
	var releases []Release
	if err := c.getJSON(ctx, "/releases", &releases); err != nil {
		return nil, err
	}

	return releases, nil
}

// LatestRelease fetches the release the catalog marks as latest.
func (c *Catalog) LatestRelease(ctx context.Context) (*Release, error) {
	var release Release
	if err := c.getJSON(ctx, "/releases/latest", &release); err != nil {
		return nil, err
	}

	return &release, nil
}

// Release fetches a single release by its numeric identifier.
func (c *Catalog) Release(ctx context.Context, id int64) (*Release, error) {
	var release Release
	if err := c.getJSON(ctx, fmt.Sprintf("/releases/%d", id), &release); err != nil {
		return nil, err
	}

	return &release, nil
}

// DownloadAsset streams an asset's binary content into dst.
func (c *Catalog) DownloadAsset(ctx context.Context, asset Asset, dst io.Writer) error {
	req, err := c.newRequest(ctx, fmt.Sprintf("/releases/assets/%d", asset.ID))
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download asset %s: %w", asset.Name, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download asset %s: %w: %d", asset.Name, errUnexpectedStatus, resp.StatusCode)
	}

	buffer := make([]byte, downloadBufferSize)
	if _, err = io.CopyBuffer(dst, resp.Body, buffer); err != nil {
		return fmt.Errorf("stream asset %s: %w", asset.Name, err)
	}

	return nil
}

// getJSON fetches a relative path and decodes the JSON answer into out.
func (c *Catalog) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: %w: %d", path, errUnexpectedStatus, resp.StatusCode)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

// newRequest builds a GET request with the headers the catalog expects.
func (c *Catalog) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}
