package fingerprint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"chromascan/pkg/models"
)

// FileSuffix is the extension of saved reference fingerprint files.
const FileSuffix = ".fpcalc"

// Store loads reference fingerprints from a directory of .fpcalc files. The
// parse cache is owned by the Store instance; there is no process-wide state.
// A Store is not safe for concurrent use; scans load references once up
// front and share the resulting slice read-only.
type Store struct {
	cache map[string]models.Fingerprint
}

func NewStore() *Store {
	return &Store{cache: make(map[string]models.Fingerprint)}
}

// Load parses one fingerprint file, consulting the cache first.
func (s *Store) Load(path string) (models.Fingerprint, error) {
	if fp, ok := s.cache[path]; ok {
		return fp, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fp, err := ParseRaw(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.cache[path] = fp
	return fp, nil
}

// List walks dir and loads every .fpcalc file, ordered by path. Titles are
// the path relative to dir with the .fpcalc suffix stripped.
func (s *Store) List(dir string) ([]models.Reference, error) {
	var refs []models.Reference
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, FileSuffix) {
			return nil
		}
		fp, err := s.Load(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		refs = append(refs, models.Reference{
			Title:       strings.TrimSuffix(rel, FileSuffix),
			Path:        path,
			Fingerprint: fp,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing reference fingerprints in %s: %w", dir, err)
	}
	return refs, nil
}
