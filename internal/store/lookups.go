package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/portalpilot/internal/config"
)

// ModelLookup is one selector lookup sent to a language model, kept so a
// drifted page can be diagnosed after the run.
type ModelLookup struct {
	At     time.Time `json:"at"`
	Model  string    `json:"model"`
	Prompt string    `json:"prompt"`
	Answer string    `json:"answer,omitempty"`
	Err    string    `json:"error,omitempty"`
}

// LookupsDir returns where model lookups are kept.
func LookupsDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "lookups"), nil
}

// SaveModelLookup writes l into the lookups directory and returns its path.
func SaveModelLookup(l ModelLookup) (string, error) {
	dir, err := LookupsDir()
	if err != nil {
		return "", err
	}
	path, err := saveJSON(dir, l)
	if err != nil {
		return "", fmt.Errorf("failed to write model lookup: %w", err)
	}
	return path, nil
}

func saveJSON(dir string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, generateFilename(".json"))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
