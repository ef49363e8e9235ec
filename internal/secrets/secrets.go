// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files
// and from a .env file. Each file in the directory is one secret: the
// filename is the key and the trimmed contents are the value.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/logger"
)

// Secret file names the server reads.
const (
	JWTSecret     = "jwt-secret"
	DatabaseURL   = "database-url"
	RedisPassword = "redis-password"
)

// Secrets maps secret names to values.
type Secrets map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory
// is not an error. Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.OrNop(log).Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Or returns the secret named key, or fallback when fallback is set or
// the secret is absent. Explicit configuration wins over secret files.
func (s Secrets) Or(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return s[key]
}

// Keys lists the loaded secret names in order, never their values.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadDotEnv adds variables from the given .env files to the process
// environment without overriding ones already set. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}
