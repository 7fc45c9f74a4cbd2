// Package pipeline sequences one run: read table, cascade filters, classify
// co-transduction, summarize, and hand results to the output adapter. It is
// pure composition over the hlapipe core.
package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ulyfm/HLA-Pipeline/internal/hlapipe"
	"github.com/ulyfm/HLA-Pipeline/internal/output"
	"github.com/ulyfm/HLA-Pipeline/internal/tabio"
)

// Options is the per-run configuration surface the orchestrator recognizes.
type Options struct {
	Filter hlapipe.FilterConfig

	// skip the matcher entirely
	SkipCoTransduction bool

	// derive exactly one literal pattern from the input filename
	AssumeCoTransduced bool

	// explicit comma-separated pattern list
	Patterns string

	// allele from a bulk manifest; overrides filename inference
	AlleleOverride string
}

// Result is everything one run produced, for callers that want more than the
// persisted outputs.
type Result struct {
	Base     string
	Overview hlapipe.Overview
	Stages   []hlapipe.StageResult
	Final    []hlapipe.Classified

	// per-pattern compile failures; classification continued without them
	PatternErrs []error
}

// ProcessFile runs the whole pipeline over one PeptideGroups file and writes
// the audit side-tables, overview row, and union additions through out.
func ProcessFile(path string, opts Options, out *output.Adapter, log *zap.SugaredLogger) (*Result, error) {
	t, err := tabio.ReadTSV(path)
	if err != nil {
		return nil, err
	}
	records, err := hlapipe.FromTable(path, t, log)
	if err != nil {
		return nil, err
	}
	base := hlapipe.BaseName(path)
	log.Infow("file loaded", "file", path, "peptides", len(records))

	stages := hlapipe.Filter(records, opts.Filter, log)
	if err := saveStageTables(out, base, t.Columns, stages); err != nil {
		return nil, err
	}
	kept := stages[len(stages)-1].Kept

	patterns, patternErrs := collectPatterns(base, opts, log)
	var classified []hlapipe.Classified
	var groups []hlapipe.MatchGroup
	if opts.SkipCoTransduction {
		classified = hlapipe.Classify(kept, nil)
	} else {
		classified = hlapipe.Classify(kept, patterns)
		groups = hlapipe.MatchGroups(classified, patterns)
	}

	if err := saveFinalTables(out, base, t.Columns, classified); err != nil {
		return nil, err
	}

	allele := opts.AlleleOverride
	if allele == "" {
		allele = hlapipe.Allele(base)
		if allele == "" {
			log.Warnw("could not infer HLA allele from file name", "file", path)
		}
	}

	overview := hlapipe.Summarize(filepath.Base(path), allele, len(records), stages, classified, groups)
	out.AppendOverview(overview.Row())
	out.AddUnion(allele, classified)

	return &Result{
		Base:        base,
		Overview:    overview,
		Stages:      stages,
		Final:       classified,
		PatternErrs: patternErrs,
	}, nil
}

// collectPatterns compiles the explicit pattern list plus, when assumed, the
// single filename-derived literal pattern. Compile failures are logged and
// collected; valid patterns still apply.
func collectPatterns(base string, opts Options, log *zap.SugaredLogger) ([]hlapipe.Pattern, []error) {
	if opts.SkipCoTransduction {
		return nil, nil
	}
	patterns, errs := hlapipe.CompilePatterns(opts.Patterns)
	for _, err := range errs {
		log.Errorw("bad co-transduction pattern", "error", err)
	}
	if opts.AssumeCoTransduced {
		if span, ok := hlapipe.InferredCoTransduced(base); ok {
			p, err := hlapipe.LiteralPattern(span)
			if err != nil {
				errs = append(errs, err)
			} else {
				log.Infow("assuming co-transduced pattern from file name", "pattern", span)
				patterns = append(patterns, p)
			}
		} else {
			log.Warnw("file name does not encode a co-transduced span", "base", base)
		}
	}
	return patterns, errs
}

// saveStageTables writes both audit side-tables for each enabled stage: the
// removed set and the cumulative kept set.
func saveStageTables(out *output.Adapter, base string, columns []string, stages []hlapipe.StageResult) error {
	folders := map[hlapipe.Stage][2]string{
		hlapipe.StageContaminant: {output.FolderContaminant, output.FolderContaminantKept},
		hlapipe.StageFragment:    {output.FolderFragment, output.FolderFragmentKept},
		hlapipe.StageDuplicate:   {output.FolderDuplicate, output.FolderDuplicateKept},
	}
	for _, s := range stages {
		if s.Skipped {
			continue
		}
		f := folders[s.Stage]
		if err := out.SaveStage(base, f[0], columns, s.Removed); err != nil {
			return err
		}
		if err := out.SaveStage(base, f[1], columns, s.Kept); err != nil {
			return err
		}
	}
	return nil
}

// saveFinalTables writes the post-classification survivors and their 8-14mer
// slice.
func saveFinalTables(out *output.Adapter, base string, columns []string, classified []hlapipe.Classified) error {
	final := make([]hlapipe.Record, 0, len(classified))
	mers := make([]hlapipe.Record, 0, len(classified))
	for _, c := range classified {
		final = append(final, c.Record)
		if c.Length >= 8 && c.Length <= 14 {
			mers = append(mers, c.Record)
		}
	}
	if err := out.SaveStage(base, output.FolderFinal, columns, final); err != nil {
		return err
	}
	return out.SaveStage(base, output.FolderFinal814, columns, mers)
}

// FindFiles walks the given directories for input tables: dotfiles and the
// audit/output directory names are skipped, and unless allFiles is set only
// *PeptideGroups.txt files are taken.
func FindFiles(paths []string, allFiles bool, log *zap.SugaredLogger) ([]string, error) {
	excluded := make(map[string]struct{}, len(output.ExcludeDirs))
	for _, d := range output.ExcludeDirs {
		excluded[d] = struct{}{}
	}

	var found []string
	var walk func(path string) error
	walk = func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			log.Warnw("file not found", "path", path)
			return nil
		}
		name := filepath.Base(path)
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if info.IsDir() {
			if _, skip := excluded[name]; skip {
				log.Debugw("ignored directory", "path", path)
				return nil
			}
			children, err := os.ReadDir(path)
			if err != nil {
				return err
			}
			for _, c := range children {
				if err := walk(filepath.Join(path, c.Name())); err != nil {
					return err
				}
			}
			return nil
		}
		if !allFiles && !strings.HasSuffix(name, "PeptideGroups.txt") {
			log.Debugw("ignored file", "path", path)
			return nil
		}
		found = append(found, path)
		return nil
	}

	for _, p := range paths {
		if err := walk(p); err != nil {
			return nil, err
		}
	}
	return found, nil
}
