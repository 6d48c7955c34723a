package pdf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists generated PDFs under a single base directory. File names
// are derived from the quote id, so regeneration overwrites in place.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the deterministic location for a quote's PDF.
func (s *Store) Path(quoteID string) string {
	return filepath.Join(s.dir, "orcamento_"+quoteID+".pdf")
}

// Write saves the PDF atomically and returns its path.
func (s *Store) Write(quoteID string, data []byte) (string, error) {
	target := s.Path(quoteID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return target, nil
}

// Read loads a previously generated PDF.
func (s *Store) Read(quoteID string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(quoteID))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return data, nil
}

// Delete removes a quote's PDF. A missing file is not an error.
func (s *Store) Delete(quoteID string) error {
	err := os.Remove(s.Path(quoteID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete pdf: %w", err)
	}
	return nil
}

// Dir exposes the base directory, used by maintenance jobs.
func (s *Store) Dir() string {
	return s.dir
}
