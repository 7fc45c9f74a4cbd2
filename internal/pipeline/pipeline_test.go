package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ulyfm/HLA-Pipeline/internal/hlapipe"
	"github.com/ulyfm/HLA-Pipeline/internal/output"
	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
)

func writeTSV(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteString("\n")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testOutput(t *testing.T) *output.Adapter {
	t.Helper()
	out, err := output.New(t.TempDir(), "union_table.csv", "overview.csv", zap.NewNop().Sugar())
	require.NoError(t, err)
	return out
}

// One run end to end: five peptides go in, each removal stage takes exactly
// one, and one survivor matches the co-transduction pattern.
func Test_ProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "sample_20240101_HLA_A0101_bRP_PeptideGroups.txt", [][]string{
		{"Sequence", "Master Protein Accessions", "Master Protein Descriptions", "RT [min]"},
		{"AAAAGSLSR", "sp", "keratin, type I", ""},
		{"LLYPTSLLRK", "P001", "SOME VIRUS PROTEIN", ""},
		{"YPTSLLR", "P001", "SOME VIRUS PROTEIN", ""},   // contained in LLYPTSLLRK
		{"GILGFVFTL", "P002", "matrix protein", ""},
		{"gilgfvftl", "P002", "matrix protein", ""},
	})

	out := testOutput(t)
	opts := Options{
		Filter:   hlapipe.FilterConfig{RTThreshold: hlapipe.DefaultRTThreshold},
		Patterns: ".*VIRUS.*",
	}
	res, err := ProcessFile(path, opts, out, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Empty(t, res.PatternErrs)
	assert.Equal(t, "sample_20240101_HLA_A0101_bRP", res.Base)

	o := res.Overview
	assert.Equal(t, 5, o.InputCount)
	assert.Equal(t, 1, o.ContaminantRemoved)
	assert.Equal(t, 1, o.FragmentRemoved)
	assert.Equal(t, 1, o.DuplicateRemoved)
	assert.Equal(t, 2, o.TotalPeptides)
	assert.Equal(t, 1, o.CoTransduced)
	assert.Equal(t, "HLA_A0101", o.Allele)
	assert.Equal(t, "20240101", o.DateCreated)
	assert.Equal(t, map[int]int{9: 1, 10: 1}, o.LengthHist)

	require.Len(t, res.Final, 2)
	assert.Equal(t, "LLYPTSLLRK", res.Final[0].Sequence)
	assert.True(t, res.Final[0].CoTransduced)
	assert.Equal(t, ".*VIRUS.*", res.Final[0].MatchedPattern)
	assert.Equal(t, "GILGFVFTL", res.Final[1].Sequence)
	assert.False(t, res.Final[1].CoTransduced)

	require.Len(t, o.Groups, 1)
	assert.Equal(t, "SOME VIRUS PROTEIN", o.Groups[0].Protein)
	assert.Equal(t, []string{"LLYPTSLLRK"}, o.Groups[0].Peptides)
}

func Test_ProcessFile_auditTables(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "sample_20240101_HLA_A0101_bRP_PeptideGroups.txt", [][]string{
		{"Sequence", "Master Protein Accessions", "Master Protein Descriptions", "RT [min]"},
		{"AAAAGSLSR", "sp", "keratin, type I", ""},
		{"LLYPTSLLRK", "P001", "SOME VIRUS PROTEIN", ""},
	})

	outDir := t.TempDir()
	out, err := output.New(outDir, "union_table.csv", "overview.csv", zap.NewNop().Sugar())
	require.NoError(t, err)

	opts := Options{Filter: hlapipe.FilterConfig{RTThreshold: hlapipe.DefaultRTThreshold}}
	res, err := ProcessFile(path, opts, out, zap.NewNop().Sugar())
	require.NoError(t, err)

	removed, err := tabio.ReadCSV(filepath.Join(outDir, output.FolderContaminant, res.Base+"_"+output.FolderContaminant+".csv"))
	require.NoError(t, err)
	require.Equal(t, 1, removed.Len())
	assert.Equal(t, "AAAAGSLSR", removed.Get(0, "Sequence"))
	// audit tables keep the input's columns, not the output schema
	assert.Equal(t, []string{"Sequence", "Master Protein Accessions", "Master Protein Descriptions", "RT [min]"}, removed.Columns)

	final, err := tabio.ReadCSV(filepath.Join(outDir, output.FolderFinal, res.Base+"_"+output.FolderFinal+".csv"))
	require.NoError(t, err)
	require.Equal(t, 1, final.Len())
	assert.Equal(t, "LLYPTSLLRK", final.Get(0, "Sequence"))

	mers, err := tabio.ReadCSV(filepath.Join(outDir, output.FolderFinal814, res.Base+"_"+output.FolderFinal814+".csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, mers.Len())
}

func Test_ProcessFile_persistedOutputs(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "sample_20240101_HLA_A0101_bRP_PeptideGroups.txt", [][]string{
		{"Sequence", "Master Protein Accessions", "Master Protein Descriptions", "RT [min]"},
		{"LLYPTSLLRK", "P001", "SOME VIRUS PROTEIN", ""},
		{"GILGFVFTL", "P002", "matrix protein", ""},
	})

	outDir := t.TempDir()
	out, err := output.New(outDir, "union_table.csv", "overview.csv", zap.NewNop().Sugar())
	require.NoError(t, err)

	opts := Options{Filter: hlapipe.FilterConfig{RTThreshold: hlapipe.DefaultRTThreshold}}
	_, err = ProcessFile(path, opts, out, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, out.SaveUnion())
	require.NoError(t, out.SaveOverview())

	u, err := tabio.ReadCSV(filepath.Join(outDir, "union_table.csv"))
	require.NoError(t, err)
	require.Equal(t, 2, u.Len())
	assert.Equal(t, "HLA_A0101", u.Get(0, "Allele"))
	assert.Equal(t, "1", u.Get(0, "Count"))

	ov, err := tabio.ReadCSV(filepath.Join(outDir, "overview.csv"))
	require.NoError(t, err)
	require.Equal(t, 1, ov.Len())
	assert.Equal(t, "sample_20240101_HLA_A0101_bRP_PeptideGroups.txt", ov.Get(0, "file_name"))
	assert.Equal(t, "2", ov.Get(0, "total_peptides"))
	assert.Equal(t, "1", ov.Get(0, "9mers"))
}

func Test_ProcessFile_assumeCoTransduced(t *testing.T) {
	dir := t.TempDir()
	// peptideX sits between the allele tokens and the bRP marker, so it is the
	// inferred co-transduction span
	path := writeTSV(t, dir, "sample_20240101_HLA_A0101_peptideX_bRP_PeptideGroups.txt", [][]string{
		{"Sequence", "Master Protein Accessions", "Master Protein Descriptions", "RT [min]"},
		{"LLYPTSLLRK", "P001", "peptideX", ""},
		{"GILGFVFTL", "P002", "matrix protein", ""},
	})

	out := testOutput(t)
	opts := Options{
		Filter:             hlapipe.FilterConfig{RTThreshold: hlapipe.DefaultRTThreshold},
		AssumeCoTransduced: true,
	}
	res, err := ProcessFile(path, opts, out, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.Len(t, res.Final, 2)
	assert.True(t, res.Final[0].CoTransduced)
	assert.Equal(t, "peptideX", res.Final[0].MatchedPattern)
	assert.False(t, res.Final[1].CoTransduced)
}

func Test_ProcessFile_skipCoTransduction(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "sample_20240101_HLA_A0101_bRP_PeptideGroups.txt", [][]string{
		{"Sequence", "Master Protein Accessions", "Master Protein Descriptions", "RT [min]"},
		{"LLYPTSLLRK", "P001", "SOME VIRUS PROTEIN", ""},
	})

	out := testOutput(t)
	opts := Options{
		Filter:             hlapipe.FilterConfig{RTThreshold: hlapipe.DefaultRTThreshold},
		SkipCoTransduction: true,
		Patterns:           ".*VIRUS.*",
	}
	res, err := ProcessFile(path, opts, out, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Overview.CoTransduced)
	assert.Empty(t, res.Overview.Groups)
}

func Test_ProcessFile_alleleOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "unconventional_name_PeptideGroups.txt", [][]string{
		{"Sequence", "Master Protein Accessions", "Master Protein Descriptions", "RT [min]"},
		{"GILGFVFTL", "P002", "matrix protein", ""},
	})

	out := testOutput(t)
	opts := Options{
		Filter:         hlapipe.FilterConfig{RTThreshold: hlapipe.DefaultRTThreshold},
		AlleleOverride: "HLA_B0702",
	}
	res, err := ProcessFile(path, opts, out, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, "HLA_B0702", res.Overview.Allele)
}

func Test_ProcessFile_badPatternStillRuns(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "sample_20240101_HLA_A0101_bRP_PeptideGroups.txt", [][]string{
		{"Sequence", "Master Protein Accessions", "Master Protein Descriptions", "RT [min]"},
		{"LLYPTSLLRK", "P001", "SOME VIRUS PROTEIN", ""},
	})

	out := testOutput(t)
	opts := Options{
		Filter:   hlapipe.FilterConfig{RTThreshold: hlapipe.DefaultRTThreshold},
		Patterns: "[unclosed, .*VIRUS.*",
	}
	res, err := ProcessFile(path, opts, out, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Len(t, res.PatternErrs, 1)
	assert.Equal(t, 1, res.Overview.CoTransduced)
}

func Test_FindFiles(t *testing.T) {
	dir := t.TempDir()
	touch := func(parts ...string) {
		path := filepath.Join(append([]string{dir}, parts...)...)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	touch("a_PeptideGroups.txt")
	touch("nested", "b_PeptideGroups.txt")
	touch("notes.txt")
	touch(".hidden_PeptideGroups.txt")
	touch(output.FolderFinal, "c_PeptideGroups.txt")

	log := zap.NewNop().Sugar()

	found, err := FindFiles([]string{dir}, false, log)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a_PeptideGroups.txt", filepath.Base(found[0]))
	assert.Equal(t, "b_PeptideGroups.txt", filepath.Base(found[1]))

	all, err := FindFiles([]string{dir}, true, log)
	require.NoError(t, err)
	assert.Len(t, all, 3) // notes.txt included, hidden and audit dirs still skipped
}

func Test_FindFiles_missingPath(t *testing.T) {
	found, err := FindFiles([]string{filepath.Join(t.TempDir(), "absent")}, false, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Empty(t, found)
}
