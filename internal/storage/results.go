// Package storage persists the Results Set of the latest run as a JSON artifact.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonathan/lpi-harvester/internal/schemas"
	"github.com/jonathan/lpi-harvester/internal/types"
)

// DefaultPath is the results artifact used when none is configured.
const DefaultPath = "results.json"

var (
	// ErrNoResults is returned when no run has been persisted yet.
	ErrNoResults = errors.New("no results available")
	// ErrAccountNotFound is returned when the results hold no report for an identity.
	ErrAccountNotFound = errors.New("account not found in results")
	// ErrNoStreaks is returned when the account's latest report is a failure.
	ErrNoStreaks = errors.New("no streak data for account")
)

// FileStore keeps the latest Results Set in a single JSON file.
// Each write replaces the previous artifact atomically.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore at path, falling back to DefaultPath
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{Path: path}
}

// WriteResults validates reports against the results schema and replaces the artifact.
// Readers never observe a partially written file.
func (s *FileStore) WriteResults(ctx context.Context, reports []types.AccountReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reports == nil {
		reports = []types.AccountReport{}
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := schemas.Validate(schemas.Results, data); err != nil {
		return fmt.Errorf("results do not match schema: %w", err)
	}
	return writeAtomic(s.Path, append(data, '\n'))
}

// ReadResults loads the latest Results Set
func (s *FileStore) ReadResults() ([]types.AccountReport, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoResults
		}
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	var reports []types.AccountReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to parse results %s: %w", s.Path, err)
	}
	return reports, nil
}

// FindStreaks returns the streak block of the report for identity
func (s *FileStore) FindStreaks(identity string) (*types.AccountInfo, *types.StreakView, error) {
	reports, err := s.ReadResults()
	if err != nil {
		return nil, nil, err
	}
	for i := range reports {
		r := reports[i]
		if r.AccountInfo.Identity != identity {
			continue
		}
		if !r.OK() {
			return &r.AccountInfo, nil, ErrNoStreaks
		}
		return &r.AccountInfo, &r.Streaks, nil
	}
	return nil, nil, ErrAccountNotFound
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace results: %w", err)
	}
	return nil
}
