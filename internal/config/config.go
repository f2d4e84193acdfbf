package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds connection and workflow parameters shared by the as3ctl commands.
type Config struct {
	// Host is the address of the BIG-IP management interface.
	Host string `yaml:"host"`
	// Username authenticates against the management REST API.
	Username string `yaml:"username"`
	// Password authenticates against the management REST API.
	Password string `yaml:"password"`
	// Port is the TCP port of the management REST service.
	Port int `yaml:"port"`
	// UseToken switches authentication from basic credentials to a login token.
	UseToken bool `yaml:"use_token"`
	// Timeout is the duration for individual REST calls to the device and the catalog.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the pause between install/uninstall verification attempts.
	PollInterval time.Duration `yaml:"poll_interval"`
	// PollAttempts is how many times the installed state is re-queried before
	// the operation is reported as still pending.
	PollAttempts int `yaml:"poll_attempts"`
	// StrictUpload aborts the install when the package upload fails.
	// When false an upload failure is logged and the install proceeds,
	// matching the tolerant behaviour of older tooling.
	StrictUpload bool `yaml:"strict_upload"`
	// DownloadDir is where release notes and package files are written.
	DownloadDir string `yaml:"download_dir"`
	// HistoryFile is the path of the YAML file recording completed operations.
	HistoryFile string `yaml:"history_file"`
	// ReleaseRepository is the GitHub "owner/name" pair hosting AS3 releases.
	ReleaseRepository string `yaml:"release_repository"`
}

const (
	// DefaultConfigFilename is the default filename for connection settings.
	DefaultConfigFilename = "as3ctl-settings.yaml"

	// DefaultHistoryFilename is the default filename for the operation history.
	DefaultHistoryFilename = "as3ctl-history.yaml"

	// DefaultHost is used when no device address is configured.
	DefaultHost = "127.0.0.1"

	// DefaultUsername is the stock administrative account on BIG-IP.
	DefaultUsername = "admin"

	// DefaultPort is the management REST port.
	DefaultPort = 443

	// DefaultTimeout is the default duration for REST calls.
	DefaultTimeout = 10 * time.Second

	// DefaultPollInterval matches the settle time the install task usually needs.
	DefaultPollInterval = 5 * time.Second

	// DefaultPollAttempts bounds the verification loop.
	DefaultPollAttempts = 3

	// DefaultReleaseRepository hosts the AS3 extension releases.
	DefaultReleaseRepository = "F5Networks/f5-appsvcs-extension"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// maxPort is the highest valid TCP port number.
	maxPort = 65535
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errHostRequired is returned when the device address is missing.
	errHostRequired = errors.New("device host must be provided")
	// errInvalidPort is returned when the management port is out of range.
	errInvalidPort = errors.New("invalid management port")
	// errInvalidRepository is returned when the release repository is not "owner/name".
	errInvalidRepository = errors.New(`release repository must look like "owner/name"`)
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file carries device credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Host == "" {
		return errHostRequired
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if cfg.Port < 0 || cfg.Port > maxPort {
		return fmt.Errorf("%w: %d", errInvalidPort, cfg.Port)
	}

	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}

	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "."
	}

	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFilename
	}

	if cfg.ReleaseRepository == "" {
		cfg.ReleaseRepository = DefaultReleaseRepository
	}

	if strings.Count(cfg.ReleaseRepository, "/") != 1 {
		return fmt.Errorf("%w: %s", errInvalidRepository, cfg.ReleaseRepository)
	}

	return nil
}
