package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ibeckermayer/portalpilot/internal/config"
)

// Report is the JSON summary written at the end of every run.
type Report struct {
	Run    Run          `json:"run"`
	States []string     `json:"states"`
	Steps  []StepRecord `json:"steps"`
}

// ReportsDir returns the directory run reports are written to.
func ReportsDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "runs"), nil
}

// generateFilename creates a timestamped filename with the given extension.
func generateFilename(ext string) string {
	return time.Now().Format("2006-01-02T15-04-05.000") + ext
}

// SaveReport writes the report into dir.
// Returns the path to the saved file.
func SaveReport(dir string, report Report) (string, error) {
	path, err := saveJSON(dir, report)
	if err != nil {
		return "", fmt.Errorf("failed to write run report: %w", err)
	}
	return path, nil
}

// LoadLatestReport loads the most recent report from dir.
// Returns the report, the filepath it was loaded from, and any error.
func LoadLatestReport(dir string) (Report, string, error) {
	var report Report

	latestPath, err := latestFile(dir)
	if err != nil {
		return report, "", err
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return report, "", fmt.Errorf("failed to read run report: %w", err)
	}

	if err := json.Unmarshal(data, &report); err != nil {
		return report, "", fmt.Errorf("failed to unmarshal run report: %w", err)
	}

	return report, latestPath, nil
}

// latestFile returns the path to the most recent JSON file in dir.
func latestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no run reports in %s", dir)
		}
		return "", err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return "", fmt.Errorf("no run reports in %s", dir)
	}

	return filepath.Join(dir, files[len(files)-1]), nil
}
