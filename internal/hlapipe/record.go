// Package hlapipe implements the peptide cleanup and classification core:
// the cascading contaminant/fragment/duplicate filter, the co-transduction
// matcher, and the per-run overview summary.
package hlapipe

import (
	"strings"

	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
)

// Record is one row of a PeptideGroups table. The semantic fields are parsed
// out of the well-known columns; Extra carries every original column verbatim
// so audit outputs can reproduce the input row untouched. Records are never
// mutated after load; every transformation builds new slices.
type Record struct {
	// the peptide amino-acid string
	Sequence string

	// number of residues, from the table's length column or len(Sequence)
	Length int

	// retention time, when the table has an RT column
	RT    float64
	HasRT bool

	// semicolon-separated multi-value columns, split and trimmed
	MasterAccessions   []string
	ProteinAccessions  []string
	MasterDescriptions []string

	// every original column of the row, in input order
	Extra []tabio.Cell
}

// NormSeq is the record's identity for deduplication and union-table keying:
// the case-folded, trimmed sequence.
func (r Record) NormSeq() string {
	return strings.ToUpper(strings.TrimSpace(r.Sequence))
}

// splitList splits a semicolon-separated multi-value column into its
// individual trimmed values.
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sharesProtein reports whether two records belong to the same protein
// grouping, ie their master accession sets intersect.
func sharesProtein(a, b Record) bool {
	for _, x := range a.MasterAccessions {
		for _, y := range b.MasterAccessions {
			if x == y {
				return true
			}
		}
	}
	return false
}
