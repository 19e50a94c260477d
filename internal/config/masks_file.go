package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_masks.toml
var sampleMasks string

// MasksFile is the on-disk form of a templates file.
type MasksFile struct {
	EntityTypes []string          `toml:"entity_types"`
	Masks       map[string]string `toml:"masks"`
}

// LoadMasksFile parses a TOML templates file. Unknown keys are rejected so a
// misspelled section does not silently fall back to defaults.
func LoadMasksFile(path string) (*MasksFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open masks file: %w", err)
	}
	defer file.Close()

	var mf MasksFile
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&mf); err != nil {
		return nil, fmt.Errorf("parse masks file %s: %w", path, err)
	}
	return &mf, nil
}

// SampleMasks returns the embedded sample templates file.
func SampleMasks() string {
	return sampleMasks
}

// CreateSample writes the sample templates file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleMasks), 0o644); err != nil {
		return fmt.Errorf("write sample masks file: %w", err)
	}
	return nil
}
