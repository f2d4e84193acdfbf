package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaulting, and format validations for settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing host.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad port.
	cfg = &Config{
		Host: "192.0.2.10",
		Port: 70000,
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Bad repository.
	cfg = &Config{
		Host:              "192.0.2.10",
		ReleaseRepository: "not-a-repo",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay with defaults filled in.
	cfg = &Config{
		Host: "192.0.2.10",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, DefaultUsername, cfg.Username)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultPollInterval, cfg.PollInterval)
	require.Equal(t, DefaultPollAttempts, cfg.PollAttempts)
	require.Equal(t, DefaultReleaseRepository, cfg.ReleaseRepository)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		Host:     "10.1.1.245",
		Username: "admin",
		Password: "admin",
		UseToken: true,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Host, loaded.Host)
	require.Equal(t, cfg.Username, loaded.Username)
	require.True(t, loaded.UseToken)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
