package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
)

const statusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository using a JSON file.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository creates a new StatusFileRepository for the given directory.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load retrieves the last saved status from disk.
// Returns an empty status and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.Status, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Status{}, nil
		}
		return domain.Status{}, err
	}

	var status domain.Status
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.Status{}, err
	}
	return status, nil
}

// Save persists the status atomically: write to a temp file, then rename.
func (r *StatusFileRepository) Save(ctx context.Context, status domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, statusFileName+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
