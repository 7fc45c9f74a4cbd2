// Package output manages a run's output files: the per-stage audit
// side-tables, the overview table, and the handle to the union store.
package output

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ulyfm/HLA-Pipeline/internal/hlapipe"
	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
	"github.com/ulyfm/HLA-Pipeline/internal/union"
)

// Audit folder names, cumulatively named to reflect which prior stages
// already ran. These double as the directory names excluded when walking an
// input directory that is also the output directory.
const (
	FolderContaminant     = "sp_peptides"
	FolderContaminantKept = "spRM_peptides"
	FolderFragment        = "frag_peptides"
	FolderFragmentKept    = "fragRM_peptides"
	FolderDuplicate       = "dup_peptides"
	FolderDuplicateKept   = "dupRM_fragRM_spRM_peptides"
	FolderFinal           = "final_peptides"
	FolderFinal814        = "final_peptides_8-14"
)

// ExcludeDirs are the output directory names skipped during input discovery.
var ExcludeDirs = []string{
	FolderContaminant, FolderContaminantKept,
	FolderFragment, FolderFragmentKept,
	FolderDuplicate, FolderDuplicateKept,
	FolderFinal, FolderFinal814,
	"image_output", "logo_results",
}

// Adapter accumulates one invocation's overview rows and union additions and
// writes audit tables as stages complete. Safe for concurrent use; bulk mode
// shares one Adapter across group workers for the global tables.
type Adapter struct {
	mu sync.Mutex

	dir          string
	overviewPath string
	union        *union.Store
	log          *zap.SugaredLogger

	overviewRows []([]tabio.Cell)
	pending      []union.Entry
}

// New creates the output directory (if needed) and an adapter writing under
// it. Relative union/overview paths land inside the output directory.
func New(dir, unionPath, overviewPath string, log *zap.SugaredLogger) (*Adapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	if !filepath.IsAbs(unionPath) && filepath.Dir(unionPath) == "." {
		unionPath = filepath.Join(dir, unionPath)
	}
	if !filepath.IsAbs(overviewPath) && filepath.Dir(overviewPath) == "." {
		overviewPath = filepath.Join(dir, overviewPath)
	}
	return &Adapter{
		dir:          dir,
		overviewPath: overviewPath,
		union:        union.NewStore(unionPath, log),
		log:          log,
	}, nil
}

// SaveStage writes an audit side-table <dir>/<folder>/<base>_<folder>.csv
// holding the records exactly as they appeared in the input.
func (a *Adapter) SaveStage(base, folder string, columns []string, records []hlapipe.Record) error {
	dir := filepath.Join(a.dir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create audit directory %s", dir)
	}
	t := recordsTable(columns, records)
	path := filepath.Join(dir, base+"_"+folder+".csv")
	return tabio.WriteCSV(path, t)
}

// AppendOverview queues one overview row for SaveOverview.
func (a *Adapter) AppendOverview(row []tabio.Cell) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overviewRows = append(a.overviewRows, row)
}

// AddUnion queues the final peptides of a run as union additions, one count
// per record, metadata from the record itself.
func (a *Adapter) AddUnion(allele string, records []hlapipe.Classified) {
	entries := make([]union.Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, union.Entry{
			Allele:       allele,
			Sequence:     r.Sequence,
			Length:       strconv.Itoa(r.Length),
			Descriptions: strings.Join(r.MasterDescriptions, "; "),
			Count:        1,
		})
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, entries...)
}

// SaveUnion merges all queued additions into the persisted union table in a
// single locked read-modify-write.
func (a *Adapter) SaveUnion() error {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()
	return a.union.Merge(pending)
}

// SaveOverview appends the queued rows to the persisted overview table and
// rewrites it. The written column set is the ordered union of the existing
// table's columns and the new rows' columns; absent values are blank.
func (a *Adapter) SaveOverview() error {
	a.mu.Lock()
	rows := a.overviewRows
	a.overviewRows = nil
	a.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}

	existing, err := tabio.ReadCSV(a.overviewPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		existing = &tabio.Table{}
	}

	columns := append([]string(nil), existing.Columns...)
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	for _, row := range rows {
		for _, cell := range row {
			if _, ok := index[cell.Column]; !ok {
				index[cell.Column] = len(columns)
				columns = append(columns, cell.Column)
			}
		}
	}

	out := &tabio.Table{Columns: columns}
	for _, row := range existing.Rows {
		padded := make([]string, len(columns))
		copy(padded, row)
		out.Rows = append(out.Rows, padded)
	}
	for _, row := range rows {
		flat := make([]string, len(columns))
		for _, cell := range row {
			flat[index[cell.Column]] = cell.Value
		}
		out.Rows = append(out.Rows, flat)
	}

	a.log.Infow("overview table saved", "path", a.overviewPath, "rows", len(out.Rows))
	return tabio.WriteCSV(a.overviewPath, out)
}

// recordsTable rebuilds the original table slice for a set of records.
func recordsTable(columns []string, records []hlapipe.Record) *tabio.Table {
	t := &tabio.Table{Columns: columns}
	for _, r := range records {
		row := make([]string, len(columns))
		for i, cell := range r.Extra {
			if i < len(columns) {
				row[i] = cell.Value
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
