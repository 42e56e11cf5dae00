package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_toAbsolutePath(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string returns empty",
			input:    "",
			expected: "",
		},
		{
			name:     "absolute path unchanged",
			input:    "/etc/config/.env",
			expected: "/etc/config/.env",
		},
		{
			name:     "relative path converted to absolute",
			input:    "config/.env",
			expected: filepath.Join(cwd, "config/.env"),
		},
		{
			name:     "dot relative path converted",
			input:    "./config/.env",
			expected: filepath.Join(cwd, "config/.env"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := toAbsolutePath(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func Test_parseEnvFileFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "no flag present",
			args:     []string{"app", "serve"},
			expected: "",
		},
		{
			name:     "flag with space separator",
			args:     []string{"app", "--env-file", "/path/to/.env", "serve"},
			expected: "/path/to/.env",
		},
		{
			name:     "flag with equals separator",
			args:     []string{"app", "--env-file=/path/to/.env", "serve"},
			expected: "/path/to/.env",
		},
		{
			name:     "flag with missing value at end",
			args:     []string{"app", "serve", "--env-file"},
			expected: "",
		},
		{
			name:     "similar flag name ignored",
			args:     []string{"app", "--env-file-path", "/path/to/.env"},
			expected: "",
		},
		{
			name:     "empty value with equals",
			args:     []string{"app", "--env-file="},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalArgs := os.Args
			t.Cleanup(func() { os.Args = originalArgs })

			os.Args = tt.args
			result := parseEnvFileFlag()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func Test_determineEnvFilePath(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		envVar   string
		expected string
	}{
		{
			name:     "nothing set returns empty",
			args:     []string{"app"},
			envVar:   "",
			expected: "",
		},
		{
			name:     "flag takes precedence over env var",
			args:     []string{"app", "--env-file", "/flag/path/.env"},
			envVar:   "/env/path/.env",
			expected: "/flag/path/.env",
		},
		{
			name:     "env var used when no flag",
			args:     []string{"app"},
			envVar:   "/env/path/.env",
			expected: "/env/path/.env",
		},
		{
			name:     "relative flag path converted to absolute",
			args:     []string{"app", "--env-file", "config/.env"},
			envVar:   "",
			expected: filepath.Join(cwd, "config/.env"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalArgs := os.Args
			t.Cleanup(func() { os.Args = originalArgs })
			os.Args = tt.args
			t.Setenv(envFileEnvVar, tt.envVar)

			result := determineEnvFilePath()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func Test_LoadEnvFile(t *testing.T) {
	t.Run("uses flag path when provided", func(t *testing.T) {
		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, "custom.env")
		err := os.WriteFile(envPath, []byte("FLAG_VAR=from_flag\n"), 0o644)
		require.NoError(t, err)

		originalArgs := os.Args
		t.Cleanup(func() {
			os.Args = originalArgs
			err = os.Unsetenv("FLAG_VAR")
			require.NoError(t, err)
		})
		os.Args = []string{"app", "--env-file", envPath}

		err = LoadEnvFile()

		assert.NoError(t, err)
		assert.Equal(t, "from_flag", os.Getenv("FLAG_VAR"))
	})

	t.Run("uses env var path when no flag", func(t *testing.T) {
		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, "envvar.env")
		err := os.WriteFile(envPath, []byte("ENVVAR_VAR=from_envvar\n"), 0o644)
		require.NoError(t, err)

		originalArgs := os.Args
		t.Cleanup(func() {
			os.Args = originalArgs
			err = os.Unsetenv("ENVVAR_VAR")
			require.NoError(t, err)
		})
		os.Args = []string{"app"}
		t.Setenv(envFileEnvVar, envPath)

		err = LoadEnvFile()

		assert.NoError(t, err)
		assert.Equal(t, "from_envvar", os.Getenv("ENVVAR_VAR"))
	})

	t.Run("falls back to the default .env", func(t *testing.T) {
		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, ".env")
		err := os.WriteFile(envPath, []byte("DEFAULT_FALLBACK=from_default\n"), 0o644)
		require.NoError(t, err)

		originalArgs := os.Args
		originalWd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(tmpDir))
		t.Cleanup(func() {
			os.Args = originalArgs
			err = os.Chdir(originalWd)
			require.NoError(t, err)

			err = os.Unsetenv("DEFAULT_FALLBACK")
			require.NoError(t, err)
		})
		os.Args = []string{"app"}
		t.Setenv(envFileEnvVar, "")

		err = LoadEnvFile()

		assert.NoError(t, err)
		assert.Equal(t, "from_default", os.Getenv("DEFAULT_FALLBACK"))
	})

	t.Run("succeeds when no .env file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalArgs := os.Args
		originalWd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(tmpDir))
		t.Cleanup(func() {
			os.Args = originalArgs
			err = os.Chdir(originalWd)
			require.NoError(t, err)
		})
		os.Args = []string{"app"}
		t.Setenv(envFileEnvVar, "")

		err = LoadEnvFile()

		assert.NoError(t, err)
	})

	t.Run("returns error for explicit nonexistent path", func(t *testing.T) {
		originalArgs := os.Args
		t.Cleanup(func() { os.Args = originalArgs })
		os.Args = []string{"app", "--env-file", "/nonexistent/.env"}

		err := LoadEnvFile()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "loading env file")
	})
}
