package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// EnvBindings maps settings keys to environment variables that override the file.
var EnvBindings = map[string]string{
	KeyAPIBaseURL:    "JOB_COPILOT_API_BASE_URL",
	KeySpreadsheetID: "JOB_COPILOT_SPREADSHEET_ID",
	KeySheetName:     "JOB_COPILOT_SHEET_NAME",
	KeyResumeText:    "JOB_COPILOT_RESUME_TEXT",
	KeyProficiencies: "JOB_COPILOT_PROFICIENCIES",
}

// FileStore persists settings in a yaml file. The file is re-read on every Get,
// so each caller observes the values saved at the time of its call.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.read(true)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if !v.IsSet(key) {
			continue
		}
		result[key] = v.GetString(key)
	}

	return result, nil
}

func (s *FileStore) Set(_ context.Context, values map[string]string) error {
	for key := range values {
		if !IsKnown(key) {
			return fmt.Errorf("unknown settings key %q", key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Env overrides must not leak into the file.
	v, err := s.read(false)
	if err != nil {
		return err
	}

	for key, value := range values {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing settings file %q: %w", s.path, err)
	}

	return nil
}

func (s *FileStore) read(withEnv bool) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	if withEnv {
		for key, env := range EnvBindings {
			if err := v.BindEnv(key, env); err != nil {
				return nil, fmt.Errorf("binding %s environment variable: %w", env, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("reading settings file %q: %w", s.path, err)
	}

	return v, nil
}
