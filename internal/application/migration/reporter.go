package migrationapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const reportTimeLayout = "20060102-150405"

// Reporter persists run results as JSON files
type Reporter struct {
	dir string
}

// NewReporter creates a Reporter writing into dir; empty means the working directory
func NewReporter(dir string) *Reporter {
	if dir == "" {
		dir = "."
	}
	return &Reporter{dir: dir}
}

// ReportFileName returns migration-result-<YYYYMMDD-HHMMSS>.json for the run start time
func ReportFileName(result *Result) string {
	return fmt.Sprintf("migration-result-%s.json", result.StartedAt.Format(reportTimeLayout))
}

// Write stores result and returns the file path.
// An existing report is never overwritten; a numeric suffix is added instead.
func (r *Reporter) Write(result *Result) (string, error) {
	if result == nil {
		return "", errors.New("nil migration result")
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode migration result: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	base := ReportFileName(result)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	path := filepath.Join(r.dir, base)
	for n := 2; ; n++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			path = filepath.Join(r.dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create report file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write report file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close report file: %w", err)
		}
		return path, nil
	}
}
