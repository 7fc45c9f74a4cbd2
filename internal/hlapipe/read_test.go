package hlapipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
)

func Test_FromTable(t *testing.T) {
	tbl := &tabio.Table{
		Columns: []string{"Sequence", "RT [min]", "Master Protein Accessions", "Protein Accessions", "Master Protein Descriptions", "Confidence"},
		Rows: [][]string{
			{"AAAAGSLSR", "12.5", "P10001; P10002", "P10001", "Some protein OS=Homo sapiens", "High"},
			{"LLYPTSLLR", "", "sp|P01234|ALBU_HUMAN", "", "Serum albumin", "Low"},
		},
	}

	records, err := FromTable("test.txt", tbl, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, "AAAAGSLSR", r.Sequence)
	assert.Equal(t, 9, r.Length)
	assert.True(t, r.HasRT)
	assert.Equal(t, 12.5, r.RT)
	assert.Equal(t, []string{"P10001", "P10002"}, r.MasterAccessions)
	assert.Equal(t, []string{"P10001"}, r.ProteinAccessions)
	assert.Equal(t, []string{"Some protein OS=Homo sapiens"}, r.MasterDescriptions)

	// the pass-through mapping preserves every original column in order
	require.Len(t, r.Extra, 6)
	assert.Equal(t, tabio.Cell{Column: "Confidence", Value: "High"}, r.Extra[5])

	// a blank RT cell leaves the record without retention time
	assert.False(t, records[1].HasRT)
}

func Test_FromTable_annotatedSequence(t *testing.T) {
	tbl := &tabio.Table{
		Columns: []string{"Annotated Sequence"},
		Rows: [][]string{
			{"[K].AAAAGSLSR.[R]"},
			{"PLAINSEQ"},
		},
	}

	records, err := FromTable("test.txt", tbl, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, "AAAAGSLSR", records[0].Sequence)
	assert.Equal(t, "PLAINSEQ", records[1].Sequence)
}

func Test_FromTable_noSequenceColumn(t *testing.T) {
	tbl := &tabio.Table{
		Columns: []string{"Master Protein Accessions"},
		Rows:    [][]string{{"P10001"}},
	}
	_, err := FromTable("test.txt", tbl, zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.txt")
}

func Test_FromTable_lengthColumn(t *testing.T) {
	tbl := &tabio.Table{
		Columns: []string{"Sequence", "length"},
		Rows:    [][]string{{"AAAAGSLSR", "42"}},
	}
	records, err := FromTable("test.txt", tbl, zap.NewNop().Sugar())
	require.NoError(t, err)
	// an explicit length column wins over the derived value
	assert.Equal(t, 42, records[0].Length)
}

func Test_stripAnnotation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[K].AAAAGSLSR.[R]", "AAAAGSLSR"},
		{"K.PEPTIDE.R", "PEPTIDE"},
		{"PLAINSEQ", "PLAINSEQ"},
		{"only.onedot", "only.onedot"},
	}
	for _, tt := range tests {
		if got := stripAnnotation(tt.in); got != tt.want {
			t.Errorf("stripAnnotation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
