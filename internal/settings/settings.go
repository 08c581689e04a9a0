// Package settings holds the user configurable key-value data read before every backend call.
package settings

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Persisted keys. They keep the camelCase names used by the browser extension storage.
const (
	KeyAPIBaseURL    = "apiBaseUrl"
	KeySpreadsheetID = "spreadsheetId"
	KeySheetName     = "sheetName"
	KeyResumeText    = "resumeText"
	KeyProficiencies = "proficiencies"
)

const (
	DefaultAPIBaseURL = "http://127.0.0.1:8001"
	DefaultSheetName  = "Applications"
)

// Keys lists every known settings key in display order.
var Keys = []string{
	KeyAPIBaseURL,
	KeySpreadsheetID,
	KeySheetName,
	KeyResumeText,
	KeyProficiencies,
}

// Settings is a decoded snapshot of the store.
type Settings struct {
	APIBaseURL    string `mapstructure:"apiBaseUrl" json:"apiBaseUrl" validate:"required,http_url"`
	SpreadsheetID string `mapstructure:"spreadsheetId" json:"spreadsheetId"`
	SheetName     string `mapstructure:"sheetName" json:"sheetName"`
	ResumeText    string `mapstructure:"resumeText" json:"resumeText"`
	Proficiencies string `mapstructure:"proficiencies" json:"proficiencies"`
}

// Reader is the read side of the store. Missing keys are absent from the returned map.
type Reader interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
}

// Store is a Reader that can also persist values.
type Store interface {
	Reader
	Set(ctx context.Context, values map[string]string) error
}

// Defaults returns the values written on first install.
func Defaults() map[string]string {
	return map[string]string{
		KeyAPIBaseURL:    DefaultAPIBaseURL,
		KeySpreadsheetID: "",
		KeySheetName:     DefaultSheetName,
		KeyResumeText:    "",
		KeyProficiencies: "",
	}
}

// IsKnown reports whether key is one of Keys.
func IsKnown(key string) bool {
	return slices.Contains(Keys, key)
}

// Decode converts raw store values into Settings. Missing keys stay empty.
func Decode(values map[string]string) (*Settings, error) {
	var s Settings
	if err := mapstructure.Decode(values, &s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return &s, nil
}

// Validate checks values before an explicit user save.
func (s *Settings) Validate() error {
	return validator.New().Struct(s)
}

// Load reads the given keys and decodes them.
func Load(ctx context.Context, r Reader, keys ...string) (*Settings, error) {
	values, err := r.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return Decode(values)
}

// Install writes defaults for every key the store does not hold yet.
// With force all keys are reset to their defaults. It returns the written keys.
func Install(ctx context.Context, store Store, force bool) ([]string, error) {
	current, err := store.Get(ctx, Keys...)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	defaults := Defaults()
	values := make(map[string]string)
	written := make([]string, 0, len(Keys))
	for _, key := range Keys {
		if _, ok := current[key]; ok && !force {
			continue
		}
		values[key] = defaults[key]
		written = append(written, key)
	}

	if len(values) == 0 {
		return written, nil
	}

	if err := store.Set(ctx, values); err != nil {
		return nil, fmt.Errorf("writing default settings: %w", err)
	}

	return written, nil
}
