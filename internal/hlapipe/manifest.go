package hlapipe

import (
	"path/filepath"

	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
)

// Manifest columns for bulk mode. HLA_allele is informational and overrides
// filename inference; the co-transduced column replaces interactive input.
const (
	manifestFileCol    = "file_name"
	manifestAlleleCol  = "HLA_allele"
	manifestPatternCol = "co-transduced protein(s)"
)

// ManifestEntry is one bulk-mode row: which file, which allele, and the
// externally resolved co-transduction pattern string for it.
type ManifestEntry struct {
	FileName string
	Allele   string
	Patterns string
}

// Manifest resolves per-file processing metadata in bulk mode.
type Manifest struct {
	entries map[string]ManifestEntry
}

// ReadManifest loads a bulk CSV manifest. Missing required columns are a
// schema error rather than a silent default.
func ReadManifest(path string) (*Manifest, error) {
	t, err := tabio.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if err := t.RequireColumns(path, manifestFileCol, manifestPatternCol); err != nil {
		return nil, err
	}

	m := &Manifest{entries: make(map[string]ManifestEntry, t.Len())}
	for i := range t.Rows {
		e := ManifestEntry{
			FileName: t.Get(i, manifestFileCol),
			Allele:   t.Get(i, manifestAlleleCol),
			Patterns: t.Get(i, manifestPatternCol),
		}
		m.entries[filepath.Base(e.FileName)] = e
	}
	return m, nil
}

// Lookup finds the manifest row for a file path, matching on the bare file
// name so manifests written against a different directory layout still apply.
func (m *Manifest) Lookup(path string) (ManifestEntry, bool) {
	e, ok := m.entries[filepath.Base(path)]
	return e, ok
}
