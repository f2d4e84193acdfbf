package bigip

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/f5devkit/as3ctl/internal/config"
	"github.com/f5devkit/as3ctl/internal/logger"
)

// Client wraps an authenticated iControl REST session with convenience helpers.
// A Client is established once and reused for the lifetime of its owner.
type Client struct {
	// baseURL is the scheme://host:port prefix of the management interface.
	baseURL string
	// httpClient performs the underlying requests.
	httpClient *http.Client

	// username and password authenticate requests in basic mode
	// and obtain the login token in token mode.
	username string
	password string
	// token is the X-F5-Auth-Token obtained at dial time, empty in basic mode.
	token string
}

// Response carries the synchronous result of a resource-creation call.
type Response struct {
	// StatusCode is the HTTP status returned by the device.
	StatusCode int
	// Body is the raw response payload.
	Body []byte
}

// Option configures client behaviour.
type Option func(*Client)

// WithBaseURL overrides the management endpoint URL derived from configuration.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

var (
	// ErrNotFound is returned by Get when the device answers 404,
	// which the callers treat as "resource absent" rather than a failure.
	ErrNotFound = errors.New("resource not found")

	// errConfigRequired is returned when no configuration is provided.
	errConfigRequired = errors.New("configuration must be provided")
	// errTokenMissing is returned when the login response carries no usable token.
	errTokenMissing = errors.New("no token in login response")
	// errUnexpectedStatus is returned on device responses outside the expected range.
	errUnexpectedStatus = errors.New("unexpected device response status")
)

const (
	// loginPath obtains an authentication token from the device.
	loginPath = "/mgmt/shared/authn/login"
	// bashPath executes an administrative shell command on the device.
	bashPath = "/mgmt/tm/util/bash"
	// uploadPathPrefix accepts chunked file uploads;
	// completed files land in /var/config/rest/downloads/.
	uploadPathPrefix = "/mgmt/shared/file-transfer/uploads/"

	// uploadChunkSize is the Content-Range slice size for file transfers.
	uploadChunkSize = 1024 * 1024
)

// Dial prepares an authenticated session against the device described by cfg.
// In token mode it logs in immediately; in basic mode credentials are attached
// per request. The management certificate is not verified because BIG-IP
// ships with a self-signed one.
func Dial(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	client := &Client{
		baseURL:  fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				//nolint:gosec // Management endpoints use self-signed certificates.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	if cfg.UseToken {
		token, err := client.login(ctx)
		if err != nil {
			return nil, fmt.Errorf("retrieve token from %s: %w", cfg.Host, err)
		}

		client.token = token
	}

	return client, nil
}

// login exchanges the configured credentials for an authentication token.
func (c *Client) login(ctx context.Context) (string, error) {
	body := map[string]string{
		"username":          c.username,
		"password":          c.password,
		"loginProviderName": "tmos",
	}

	resp, err := c.Create(ctx, loginPath, body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var parsed struct {
		Token struct {
			Token string `json:"token"`
		} `json:"token"`
	}

	if err = json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}

	if parsed.Token.Token == "" {
		return "", errTokenMissing
	}

	return parsed.Token.Token, nil
}

// Get reads a resource from the device and decodes it as a generic mapping.
// A 404 answer is reported as ErrNotFound.
func (c *Client) Get(ctx context.Context, path string) (map[string]any, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: %w: %d", path, errUnexpectedStatus, resp.StatusCode)
	}

	var result map[string]any
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}

	return result, nil
}

// Create posts a JSON body to the device and returns the synchronous response.
// Status handling is left to the caller: asynchronous task endpoints signal
// acceptance with codes the caller must check (202 for package tasks).
func (c *Client) Create(ctx context.Context, path string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
	}, nil
}

// RunCommand executes a shell command on the device through the util/bash endpoint.
func (c *Client) RunCommand(ctx context.Context, command string) error {
	body := map[string]string{
		"command":     "run",
		"utilCmdArgs": fmt.Sprintf("-c '%s'", command),
	}

	resp, err := c.Create(ctx, bashPath, body)
	if err != nil {
		return fmt.Errorf("run command %q: %w", command, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("run command %q: %w: %d", command, errUnexpectedStatus, resp.StatusCode)
	}

	logger.DebugKV(ctx, "Command executed on device", "command", command)

	return nil
}

// newRequest builds a request against the management endpoint with authentication attached.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}

	if c.token != "" {
		req.Header.Set("X-F5-Auth-Token", c.token)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}

	return req, nil
}
