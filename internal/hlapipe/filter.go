package hlapipe

import (
	"strings"

	"go.uber.org/zap"
)

// Stage names the cascading filter stages, in their fixed order.
type Stage string

const (
	StageContaminant Stage = "contaminant"
	StageFragment    Stage = "fragment"
	StageDuplicate   Stage = "duplicate"
)

// FragmentScope is the containment policy for the fragment stage: whether a
// peptide can be a fragment of any longer peptide in the run, or only of one
// sharing a master accession. The reference output has not settled which is
// correct, so it stays an explicit policy.
type FragmentScope string

const (
	ScopeGlobal  FragmentScope = "global"
	ScopeProtein FragmentScope = "protein"
)

// DefaultRTThreshold is the maximum absolute retention-time difference for a
// contained peptide to count as a fragment of the containing one.
const DefaultRTThreshold = 0.5

// DefaultContaminantTag is the accession classification tag ProteomeDiscoverer
// uses for known contaminant ("crap-ome") proteins.
const DefaultContaminantTag = "sp"

// FilterConfig controls the cascading filter stages.
type FilterConfig struct {
	SkipContaminant bool
	SkipFragment    bool
	SkipDuplicate   bool

	// contaminant classification tag, DefaultContaminantTag when empty
	ContaminantTag string

	// fragment containment policy, ScopeGlobal when empty
	Scope FragmentScope

	// RT gate for the fragment stage; negative disables the gate entirely
	RTThreshold float64

	// fragment stage length window; zero values take the defrag defaults
	FragMinLen int
	FragMaxLen int
}

// StageResult is the outcome of one cascading stage. Kept and Removed are
// disjoint and their union, in order, is the stage's input.
type StageResult struct {
	Stage   Stage
	Skipped bool
	Kept    []Record
	Removed []Record
}

// Filter applies the cascading removal stages in fixed order: contaminant,
// fragment, duplicate. Each stage consumes the previous stage's kept set, so
// kept sets shrink monotonically and a record removed at one stage can never
// reappear in a later stage's removed set. Disabled stages pass their input
// through with an empty removed set.
func Filter(records []Record, cfg FilterConfig, log *zap.SugaredLogger) []StageResult {
	tag := cfg.ContaminantTag
	if tag == "" {
		tag = DefaultContaminantTag
	}

	results := make([]StageResult, 0, 3)
	cur := records

	res := runStage(StageContaminant, cur, cfg.SkipContaminant, func(rs []Record) []bool {
		flags := make([]bool, len(rs))
		for i, r := range rs {
			flags[i] = isContaminant(r, tag)
		}
		return flags
	})
	log.Infow("contaminant stage", "removed", len(res.Removed), "kept", len(res.Kept), "skipped", res.Skipped)
	results = append(results, res)
	cur = res.Kept

	res = runStage(StageFragment, cur, cfg.SkipFragment, func(rs []Record) []bool {
		return findFragments(rs, cfg)
	})
	log.Infow("fragment stage", "removed", len(res.Removed), "kept", len(res.Kept), "skipped", res.Skipped)
	results = append(results, res)
	cur = res.Kept

	res = runStage(StageDuplicate, cur, cfg.SkipDuplicate, markDuplicates)
	log.Infow("duplicate stage", "removed", len(res.Removed), "kept", len(res.Kept), "skipped", res.Skipped)
	results = append(results, res)

	return results
}

// runStage partitions the input by the mark function's removal flags,
// preserving input order on both sides. Skipped stages keep everything.
func runStage(stage Stage, in []Record, skip bool, mark func([]Record) []bool) StageResult {
	res := StageResult{Stage: stage}
	if skip {
		res.Skipped = true
		res.Kept = in
		return res
	}
	flags := mark(in)
	res.Kept = make([]Record, 0, len(in))
	for i, r := range in {
		if flags[i] {
			res.Removed = append(res.Removed, r)
		} else {
			res.Kept = append(res.Kept, r)
		}
	}
	return res
}

// isContaminant reports whether any master accession value carries the
// contaminant classification tag. The tag must match the accession's
// classification segment exactly (the whole value, or the part before the
// first "|"), never as a substring: "Wasp venom" is not a contaminant.
func isContaminant(r Record, tag string) bool {
	for _, acc := range r.MasterAccessions {
		if acc == tag {
			return true
		}
		if db, _, ok := strings.Cut(acc, "|"); ok && db == tag {
			return true
		}
	}
	return false
}

// markDuplicates flags every record whose normalized sequence was already
// seen earlier in the pass. The first occurrence, by input order, wins.
func markDuplicates(rs []Record) []bool {
	flags := make([]bool, len(rs))
	seen := make(map[string]struct{}, len(rs))
	for i, r := range rs {
		key := r.NormSeq()
		if _, dup := seen[key]; dup {
			flags[i] = true
			continue
		}
		seen[key] = struct{}{}
	}
	return flags
}
