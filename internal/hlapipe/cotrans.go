package hlapipe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Pattern is a compiled co-transduction matcher. Matching is case-insensitive
// and anchored: the whole candidate must match, as if the expression were
// wrapped in ^...$. Separator characters (space, underscore, hyphen) that do
// not appear literally in the raw expression are stripped from both sides
// before matching, so "HLAA2" matches "HLA_A2", "HLA-A2" and "HLA A2" unless
// the expression commits to a specific separator.
type Pattern struct {
	Raw string

	keepSpace      bool
	keepUnderscore bool
	keepHyphen     bool

	re *regexp.Regexp
}

// PatternError reports a user-supplied expression that failed to compile.
// One bad expression in a comma-separated list does not abort the others.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid co-transduction pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// CompilePattern builds a single matcher from a raw expression. The raw text
// decides separator significance before the anchored regexp is compiled.
func CompilePattern(raw string) (Pattern, error) {
	p := Pattern{Raw: strings.TrimSpace(raw)}
	p.keepSpace = strings.Contains(p.Raw, " ")
	p.keepUnderscore = strings.Contains(p.Raw, "_")
	p.keepHyphen = strings.Contains(p.Raw, "-")

	expr := p.normalize(p.Raw)
	re, err := regexp.Compile(`(?i)\A(?:` + expr + `)\z`)
	if err != nil {
		return Pattern{}, &PatternError{Pattern: p.Raw, Err: err}
	}
	p.re = re
	return p, nil
}

// CompilePatterns splits a comma-separated expression list, trims each entry,
// and compiles them independently. Compile failures are collected per pattern
// and the remaining valid patterns are still returned.
func CompilePatterns(raw string) ([]Pattern, []error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "none" {
		return nil, nil
	}
	var (
		pats []Pattern
		errs []error
	)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := CompilePattern(part)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pats = append(pats, p)
	}
	return pats, errs
}

// LiteralPattern quotes text (eg a filename-derived protein span) so it is
// matched as a literal full string, not interpreted as a regular expression.
func LiteralPattern(text string) (Pattern, error) {
	p, err := CompilePattern(regexp.QuoteMeta(text))
	if err != nil {
		return Pattern{}, err
	}
	p.Raw = text
	return p, nil
}

// normalize lowercases the candidate and strips the separator characters the
// pattern did not commit to.
func (p Pattern) normalize(s string) string {
	s = strings.ToLower(s)
	if !p.keepHyphen {
		s = strings.ReplaceAll(s, "-", "")
	}
	if !p.keepUnderscore {
		s = strings.ReplaceAll(s, "_", "")
	}
	if !p.keepSpace {
		s = strings.ReplaceAll(s, " ", "")
	}
	return strings.TrimSpace(s)
}

// Matches reports whether the whole normalized candidate matches.
func (p Pattern) Matches(candidate string) bool {
	return p.re.MatchString(p.normalize(candidate))
}

// Classified is a Record plus its co-transduction verdict.
type Classified struct {
	Record

	CoTransduced bool

	// the first supplied pattern that matched, for traceability
	MatchedPattern string
}

// Classify marks each record co-transduced if any pattern fully matches any
// individual accession or description value. Values are matched one by one,
// never as a concatenation of the whole set.
func Classify(records []Record, patterns []Pattern) []Classified {
	out := make([]Classified, len(records))
	for i, r := range records {
		out[i] = Classified{Record: r}
		for _, p := range patterns {
			if matchesRecord(p, r) {
				out[i].CoTransduced = true
				out[i].MatchedPattern = p.Raw
				break
			}
		}
	}
	return out
}

func matchesRecord(p Pattern, r Record) bool {
	for _, values := range [][]string{r.MasterAccessions, r.ProteinAccessions, r.MasterDescriptions} {
		for _, v := range values {
			if p.Matches(v) {
				return true
			}
		}
	}
	return false
}

// MatchGroup collects the peptides whose row matched a pattern through one
// particular protein value (accession or description).
type MatchGroup struct {
	Protein  string
	Peptides []string
}

// MatchGroups breaks classification results down by the matched protein
// value: for each pattern in order, every accession/description value that
// fully matched becomes one group holding the sorted, deduplicated sequences
// observed with it. Peptide lists are sorted so repeated runs are comparable.
func MatchGroups(classified []Classified, patterns []Pattern) []MatchGroup {
	var order []string
	peptides := make(map[string]map[string]struct{})

	for _, p := range patterns {
		for _, c := range classified {
			for _, values := range [][]string{c.MasterAccessions, c.ProteinAccessions, c.MasterDescriptions} {
				for _, v := range values {
					if !p.Matches(v) {
						continue
					}
					if _, ok := peptides[v]; !ok {
						peptides[v] = make(map[string]struct{})
						order = append(order, v)
					}
					peptides[v][c.Sequence] = struct{}{}
				}
			}
		}
	}

	groups := make([]MatchGroup, 0, len(order))
	for _, protein := range order {
		seqs := make([]string, 0, len(peptides[protein]))
		for s := range peptides[protein] {
			seqs = append(seqs, s)
		}
		sort.Strings(seqs)
		groups = append(groups, MatchGroup{Protein: protein, Peptides: seqs})
	}
	return groups
}
