// Package union owns the persisted cross-run union table: the one piece of
// genuinely shared mutable state in the pipeline. Every write goes through a
// single read-modify-write transaction under an exclusive file lock, since a
// lost update would silently undercount a peptide.
package union

import (
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
)

// Entry is one aggregate row, keyed by allele plus normalized sequence.
// Count is how many contributions observed the peptide; the metadata columns
// come from the first run that contributed it.
type Entry struct {
	Allele       string
	Sequence     string
	Length       string
	Descriptions string
	Count        int
}

// Columns is the persisted CSV schema.
var Columns = []string{"Allele", "Sequence", "Length", "Master Protein Descriptions", "Count"}

type key struct {
	allele string
	seq    string
}

func keyOf(e Entry) key {
	return key{allele: e.Allele, seq: strings.ToUpper(strings.TrimSpace(e.Sequence))}
}

// Merge folds additions into the existing entries. Existing keys have their
// Count incremented and keep their first-seen metadata; new keys are appended
// after all existing rows, in first-encounter order.
//
// Merge is additive, NOT idempotent: folding the same additions in twice
// doubles their contribution to Count. That is the point — each run of a
// peptide is one more observation.
func Merge(existing, additions []Entry) []Entry {
	out := make([]Entry, len(existing))
	copy(out, existing)

	index := make(map[key]int, len(out))
	for i, e := range out {
		index[keyOf(e)] = i
	}

	for _, add := range additions {
		k := keyOf(add)
		if i, ok := index[k]; ok {
			out[i].Count += add.Count
			continue
		}
		index[k] = len(out)
		out = append(out, add)
	}
	return out
}

// Store persists the union table at one path with single-writer discipline.
type Store struct {
	path string
	log  *zap.SugaredLogger
}

func NewStore(path string, log *zap.SugaredLogger) *Store {
	return &Store{path: path, log: log}
}

func (s *Store) Path() string { return s.path }

// Load reads the persisted table. A missing file is an empty table; a file
// without the key columns is a schema error, never coerced.
func (s *Store) Load() ([]Entry, error) {
	t, err := tabio.ReadCSV(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return fromTable(s.path, t)
}

// Merge runs one read-modify-write transaction: lock, load, fold in the
// additions, rewrite atomically, unlock.
func (s *Store) Merge(additions []Entry) error {
	if len(additions) == 0 {
		return nil
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "failed to lock union table %s", s.path)
	}
	defer func() { _ = lock.Unlock() }()

	existing, err := s.Load()
	if err != nil {
		return err
	}
	merged := Merge(existing, additions)
	s.log.Infow("union table merged",
		"path", s.path, "existing", len(existing), "added", len(additions), "total", len(merged))

	return tabio.WriteCSVAtomic(s.path, toTable(merged))
}

func fromTable(path string, t *tabio.Table) ([]Entry, error) {
	if err := t.RequireColumns(path, Columns[0], Columns[1], Columns[4]); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, t.Len())
	for i := range t.Rows {
		count, err := strconv.Atoi(strings.TrimSpace(t.Get(i, "Count")))
		if err != nil {
			return nil, errors.Wrapf(err, "%s row %d: bad Count", path, i+1)
		}
		entries = append(entries, Entry{
			Allele:       t.Get(i, "Allele"),
			Sequence:     t.Get(i, "Sequence"),
			Length:       t.Get(i, "Length"),
			Descriptions: t.Get(i, "Master Protein Descriptions"),
			Count:        count,
		})
	}
	return entries, nil
}

func toTable(entries []Entry) *tabio.Table {
	t := &tabio.Table{Columns: Columns}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{e.Allele, e.Sequence, e.Length, e.Descriptions, strconv.Itoa(e.Count)})
	}
	return t
}
