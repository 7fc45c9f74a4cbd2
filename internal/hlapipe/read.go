package hlapipe

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
)

// Column names recognized in PeptideGroups exports.
const (
	colSequence     = "Sequence"
	colAnnotatedSeq = "Annotated Sequence"
	colMasterAcc    = "Master Protein Accessions"
	colProteinAcc   = "Protein Accessions"
	colMasterDesc   = "Master Protein Descriptions"
	colLength       = "length"
)

// FromTable standardizes a loaded PeptideGroups table into Records. A missing
// sequence column is an error; missing accession or description columns are
// tolerated with a warning and default to empty. The first column whose name
// starts with "RT" supplies retention times.
func FromTable(path string, t *tabio.Table, log *zap.SugaredLogger) ([]Record, error) {
	seqIdx, annotated := t.Index(colSequence), false
	if seqIdx < 0 {
		seqIdx, annotated = t.Index(colAnnotatedSeq), true
	}
	if seqIdx < 0 {
		return nil, errors.Errorf("%s: no %q or %q column found", path, colSequence, colAnnotatedSeq)
	}

	rtIdx := -1
	for i, c := range t.Columns {
		if strings.HasPrefix(c, "RT") {
			rtIdx = i
			break
		}
	}
	if rtIdx < 0 {
		log.Warnw("no RT column, fragment removal will not use retention times", "file", path)
	}

	masterIdx := t.Index(colMasterAcc)
	if masterIdx < 0 {
		log.Warnw("missing master accessions column", "file", path)
	}
	protIdx := t.Index(colProteinAcc)
	if protIdx < 0 {
		log.Warnw("missing protein accessions column", "file", path)
	}
	descIdx := t.Index(colMasterDesc)
	if descIdx < 0 {
		log.Warnw("missing master descriptions column", "file", path)
	}
	lenIdx := t.Index(colLength)

	records := make([]Record, 0, t.Len())
	for _, row := range t.Rows {
		seq := row[seqIdx]
		if annotated {
			seq = stripAnnotation(seq)
		}

		r := Record{Sequence: seq, Length: len(seq)}
		if lenIdx >= 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(row[lenIdx])); err == nil {
				r.Length = n
			}
		}
		if rtIdx >= 0 {
			if rt, err := strconv.ParseFloat(strings.TrimSpace(row[rtIdx]), 64); err == nil {
				r.RT, r.HasRT = rt, true
			}
		}
		if masterIdx >= 0 {
			r.MasterAccessions = splitList(row[masterIdx])
		}
		if protIdx >= 0 {
			r.ProteinAccessions = splitList(row[protIdx])
		}
		if descIdx >= 0 {
			r.MasterDescriptions = splitList(row[descIdx])
		}

		r.Extra = make([]tabio.Cell, len(t.Columns))
		for i, c := range t.Columns {
			r.Extra[i] = tabio.Cell{Column: c, Value: row[i]}
		}
		records = append(records, r)
	}
	return records, nil
}

// stripAnnotation reduces an annotated sequence like "[K].PEPTIDE.[R]" to the
// bare peptide between the first two dots. Unannotated values pass through.
func stripAnnotation(seq string) string {
	first := strings.Index(seq, ".")
	if first < 0 {
		return seq
	}
	rest := seq[first+1:]
	second := strings.Index(rest, ".")
	if second < 0 {
		return seq
	}
	return rest[:second]
}
