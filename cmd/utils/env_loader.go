package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envFileFlag   = "--env-file"
	envFileEnvVar = "ENV_FILE"
)

// LoadEnvFile loads environment variables from a file before any flag
// parsing happens, so the loaded variables take part in viper's env binding.
// Priority: --env-file flag > ENV_FILE environment variable > .env in the
// working directory.
func LoadEnvFile() error {
	if envFilePath := determineEnvFilePath(); envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFilePath, err)
		}
		return nil
	}

	// The default .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env file: %w", err)
	}
	return nil
}

// determineEnvFilePath resolves the explicitly requested env file, if any,
// to an absolute path.
func determineEnvFilePath() string {
	if path := parseEnvFileFlag(); path != "" {
		return toAbsolutePath(path)
	}
	if path := os.Getenv(envFileEnvVar); path != "" {
		return toAbsolutePath(path)
	}
	return ""
}

// parseEnvFileFlag scans the raw arguments for --env-file. It runs before
// cobra, so it cannot rely on pflag.
func parseEnvFileFlag() string {
	for i, arg := range os.Args {
		if arg == envFileFlag && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, envFileFlag+"=") {
			return strings.TrimPrefix(arg, envFileFlag+"=")
		}
	}
	return ""
}

func toAbsolutePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
