package hlapipe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
)

// Overview mer columns cover the biologically interesting 7-14mer window;
// the in-memory histogram covers every observed length.
const (
	merLow  = 7
	merHigh = 14
)

// Overview is the per-run summary row: what went in, what each stage
// removed, what was classified co-transduced, and the length distribution of
// what remains.
type Overview struct {
	FileName    string
	DateCreated string
	Allele      string

	InputCount         int
	ContaminantRemoved int
	FragmentRemoved    int
	DuplicateRemoved   int
	TotalPeptides      int

	CoTransduced int
	Groups       []MatchGroup

	LengthHist map[int]int
}

// Summarize builds the overview row for one run from the filter stage results
// and the classified survivors.
func Summarize(fileName, allele string, inputCount int, stages []StageResult, final []Classified, groups []MatchGroup) Overview {
	o := Overview{
		FileName:      fileName,
		DateCreated:   DateCreated(BaseName(fileName)),
		Allele:        allele,
		InputCount:    inputCount,
		TotalPeptides: len(final),
		Groups:        groups,
		LengthHist:    make(map[int]int),
	}
	for _, s := range stages {
		switch s.Stage {
		case StageContaminant:
			o.ContaminantRemoved = len(s.Removed)
		case StageFragment:
			o.FragmentRemoved = len(s.Removed)
		case StageDuplicate:
			o.DuplicateRemoved = len(s.Removed)
		}
	}
	for _, c := range final {
		o.LengthHist[c.Length]++
		if c.CoTransduced {
			o.CoTransduced++
		}
	}
	return o
}

// Row flattens the overview into ordered output columns. Matched groups are
// numbered column pairs (co-transduced_protein_N / co-transduced_peptides_N)
// so rows with different group counts can still share a table.
func (o Overview) Row() []tabio.Cell {
	cells := []tabio.Cell{
		{Column: "file_name", Value: o.FileName},
		{Column: "date_created", Value: o.DateCreated},
		{Column: "HLA_allele", Value: o.Allele},
		{Column: "input_count", Value: strconv.Itoa(o.InputCount)},
		{Column: "sp_count", Value: strconv.Itoa(o.ContaminantRemoved)},
		{Column: "fragment_count", Value: strconv.Itoa(o.FragmentRemoved)},
		{Column: "duplicate_count", Value: strconv.Itoa(o.DuplicateRemoved)},
		{Column: "total_peptides", Value: strconv.Itoa(o.TotalPeptides)},
		{Column: "cotransduced_count", Value: strconv.Itoa(o.CoTransduced)},
	}
	for i, g := range o.Groups {
		cells = append(cells,
			tabio.Cell{Column: fmt.Sprintf("co-transduced_protein_%d", i+1), Value: g.Protein},
			tabio.Cell{Column: fmt.Sprintf("co-transduced_peptides_%d", i+1), Value: strings.Join(g.Peptides, ", ")},
		)
	}
	for l := merLow; l <= merHigh; l++ {
		cells = append(cells, tabio.Cell{
			Column: fmt.Sprintf("%dmers", l),
			Value:  strconv.Itoa(o.LengthHist[l]),
		})
	}
	return cells
}
