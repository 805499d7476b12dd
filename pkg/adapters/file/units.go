package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// lockRetryDelay is the polling interval while waiting for another process's lock.
const lockRetryDelay = 50 * time.Millisecond

// UnitRepository implements ports.UnitRepository over a directory of unit files.
// Each file holds exactly one unit, encoded as YAML (.yaml, .yml) or JSON (.json).
// A unit without an explicit id takes the file name (without extension).
type UnitRepository struct {
	BasePath string
}

// NewUnitRepository creates a repository rooted at basePath.
// If basePath is empty, it defaults to "units".
func NewUnitRepository(basePath string) *UnitRepository {
	if basePath == "" {
		basePath = "units"
	}
	return &UnitRepository{BasePath: basePath}
}

// Get scans the directory for the unit with the given id.
func (r *UnitRepository) Get(ctx context.Context, id string) (domain.Unit, error) {
	u, _, err := r.find(id)
	return u, err
}

// List decodes every unit file in the directory, sorted by file name.
func (r *UnitRepository) List(ctx context.Context) ([]domain.Unit, error) {
	paths, err := r.files()
	if err != nil {
		return nil, err
	}

	units := make([]domain.Unit, 0, len(paths))
	for _, p := range paths {
		u, err := LoadUnit(p)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// MarkExecuted rewrites the unit file with the new last-run timestamp.
// The rewrite holds a cross-process file lock and replaces the file atomically.
func (r *UnitRepository) MarkExecuted(ctx context.Context, id string, at time.Time) error {
	_, path, err := r.find(id)
	if err != nil {
		return err
	}

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock unit file %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock unit file %s", path)
	}
	defer func() {
		_ = fileLock.Unlock()
		_ = os.Remove(path + ".lock")
	}()

	// Re-read under the lock so concurrent edits are not lost.
	u, err := LoadUnit(path)
	if err != nil {
		return err
	}
	at = at.UTC()
	u.LastRun = &at

	data, err := encodeUnit(path, u)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func (r *UnitRepository) find(id string) (domain.Unit, string, error) {
	paths, err := r.files()
	if err != nil {
		return domain.Unit{}, "", err
	}
	for _, p := range paths {
		u, err := LoadUnit(p)
		if err != nil {
			return domain.Unit{}, "", err
		}
		if u.ID == id {
			return u, p, nil
		}
	}
	return domain.Unit{}, "", fmt.Errorf("%w: %s", domain.ErrUnitNotFound, id)
}

func (r *UnitRepository) files() ([]string, error) {
	entries, err := os.ReadDir(r.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list units: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isUnitFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(r.BasePath, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func isUnitFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadUnit decodes a single unit file, picking the format from the extension.
func LoadUnit(path string) (domain.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Unit{}, fmt.Errorf("failed to read unit file: %w", err)
	}

	var u domain.Unit
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &u)
	default:
		err = yaml.Unmarshal(data, &u)
	}
	if err != nil {
		return domain.Unit{}, fmt.Errorf("failed to parse unit file %s: %w", path, err)
	}

	if u.ID == "" {
		base := filepath.Base(path)
		u.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return u, nil
}

func encodeUnit(path string, u domain.Unit) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(u, "", "  ")
	default:
		data, err = yaml.Marshal(u)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal unit: %w", err)
	}
	return data, nil
}

// writeAtomic writes to a temporary file, syncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // No-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove existing unit file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}
