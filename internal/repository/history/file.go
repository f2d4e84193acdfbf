package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Operation names a lifecycle action recorded in the history.
type Operation string

const (
	// OperationInstall marks a package installation.
	OperationInstall Operation = "install"
	// OperationUninstall marks a package removal.
	OperationUninstall Operation = "uninstall"
)

// Record describes one completed lifecycle operation.
type Record struct {
	// Time is when the operation finished.
	Time time.Time `yaml:"time"`
	// Host is the device the operation targeted.
	Host string `yaml:"host"`
	// Operation is the action performed.
	Operation Operation `yaml:"operation"`
	// Package is the package file or canonical package name involved.
	Package string `yaml:"package"`
	// Version is the package version when known.
	Version string `yaml:"version,omitempty"`
	// Succeeded reports the operation outcome.
	Succeeded bool `yaml:"succeeded"`
}

// Repository defines persistence operations for the operation history.
type Repository interface {
	Load(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, record Record) error
}

// FileRepository persists the history to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the history file.
	path string
	// mu protects concurrent access to the history file.
	mu sync.Mutex
}

// ErrNotFound is returned when the history file does not exist yet.
var ErrNotFound = errors.New("history not found")

// filePermissions restricts the history file to the owning user.
const filePermissions = 0o600

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads all records from disk.
func (r *FileRepository) Load(_ context.Context) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load()
}

// Append adds a record to the history, creating the file when missing.
func (r *FileRepository) Append(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	records = append(records, record)

	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err = os.WriteFile(r.path, data, filePermissions); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}

	return nil
}

// load reads and decodes the history file; callers hold the lock.
func (r *FileRepository) load() ([]Record, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read history file: %w", err)
	}

	var records []Record
	if err = yaml.Unmarshal(contents, &records); err != nil {
		return nil, fmt.Errorf("decode history file: %w", err)
	}

	return records, nil
}
