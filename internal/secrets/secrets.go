// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: google-api-key, gemini-api-key.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when no credential source yields an API key.
var ErrMissingAPIKey = errors.New("no API key found: set GOOGLE_API_KEY or GEMINI_API_KEY, add it to .env, or write it to .secrets/google-api-key")

// Environment variables and secret file names checked for the API key, in
// priority order.
var (
	apiKeyEnvVars = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	apiKeyFiles   = []string{"google-api-key", "gemini-api-key"}
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ResolveAPIKey finds the API key. The process environment wins, then the
// dotenv file at dotenvPath, then the key files in secretsDir. Either path
// may be empty to skip that source. Returns ErrMissingAPIKey when nothing
// is found.
func ResolveAPIKey(secretsDir, dotenvPath string) (string, error) {
	for _, name := range apiKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}

	if dotenvPath != "" {
		env, err := godotenv.Read(dotenvPath)
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("reading %s: %w", dotenvPath, err)
		}
		for _, name := range apiKeyEnvVars {
			if v := strings.TrimSpace(env[name]); v != "" {
				return v, nil
			}
		}
	}

	if secretsDir != "" {
		secrets, err := Load(secretsDir)
		if err != nil {
			return "", err
		}
		for _, name := range apiKeyFiles {
			if v := secrets[name]; v != "" {
				return v, nil
			}
		}
	}

	return "", ErrMissingAPIKey
}
