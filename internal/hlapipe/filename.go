package hlapipe

import (
	"path/filepath"
	"strings"
)

// peptideGroupsSuffix is the file suffix ProteomeDiscoverer puts on peptide
// group exports, eg Test_010101_HLA_A0101_HEL_bRP_PeptideGroups.txt.
const peptideGroupsSuffix = "_PeptideGroups.txt"

// BaseName is the file name without its PeptideGroups or .txt suffix. All
// filename-derived metadata (allele, date, co-transduced span) is parsed
// from the base name's underscore-delimited tokens.
func BaseName(path string) string {
	name := filepath.Base(path)
	if strings.HasSuffix(name, peptideGroupsSuffix) {
		return strings.TrimSuffix(name, peptideGroupsSuffix)
	}
	return strings.TrimSuffix(name, ".txt")
}

// Allele infers the HLA allele from a base name following the
// name_date_HLA_allele_... convention. Returns "" when the name does not
// follow the convention.
func Allele(base string) string {
	tokens := strings.Split(base, "_")
	if len(tokens) > 3 && tokens[2] == "HLA" {
		return "HLA_" + tokens[3]
	}
	return ""
}

// DateCreated is the second underscore-delimited token of the base name,
// where the naming convention records the acquisition date.
func DateCreated(base string) string {
	tokens := strings.Split(base, "_")
	if len(tokens) > 1 {
		return tokens[1]
	}
	return ""
}

// InferredCoTransduced extracts the co-transduced protein span from a base
// name: the run of tokens starting at the fifth and ending just before the
// literal "bRP" token, rejoined with underscores. Names with fewer than five
// tokens, no bRP token, or an empty span yield no pattern; that is not an
// error, classification just proceeds without an inferred pattern.
func InferredCoTransduced(base string) (string, bool) {
	tokens := strings.Split(base, "_")
	if len(tokens) < 5 {
		return "", false
	}
	brp := -1
	for i, tok := range tokens {
		if tok == "bRP" {
			brp = i
			break
		}
	}
	if brp <= 4 {
		return "", false
	}
	return strings.Join(tokens[4:brp], "_"), true
}
