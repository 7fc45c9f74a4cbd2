// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"log"

	"github.com/spf13/viper"

	"github.com/ulyfm/HLA-Pipeline/internal/hlapipe"
	"github.com/ulyfm/HLA-Pipeline/internal/pipeline"
)

// Config is the root-level settings struct, a mix of settings available in
// an optional settings file and those bound from the command line.
type Config struct {
	// directory (or file) with PeptideGroups tables to process
	Input string `mapstructure:"input"`

	// directory where audit side-tables and summary tables are written
	Output string `mapstructure:"output"`

	// path of the persisted cross-run union table
	Union string `mapstructure:"union"`

	// path of the persisted overview table
	Overview string `mapstructure:"overview"`

	// process every file, not just *PeptideGroups.txt
	AllFiles bool `mapstructure:"all-files"`

	// independently disable a cascading filter stage
	SkipContaminant bool `mapstructure:"skip-contaminant"`
	SkipFragment    bool `mapstructure:"skip-fragment"`
	SkipDuplicate   bool `mapstructure:"skip-duplicate"`

	// accession classification tag marking contaminants
	ContaminantTag string `mapstructure:"contaminant-tag"`

	// fragment containment policy: global | protein
	FragmentScope string `mapstructure:"fragment-scope"`

	// max |ΔRT| for fragment containment; negative disables the gate
	RTThreshold float64 `mapstructure:"rt-threshold"`

	// skip the co-transduction matcher entirely
	SkipCoTransduction bool `mapstructure:"skip-cotransduced"`

	// derive one pattern per run from the input file name
	AssumeCoTransduced bool `mapstructure:"assume-cotransduced"`

	// explicit comma-separated co-transduction patterns
	Patterns string `mapstructure:"cotransduced"`

	// bulk-mode worker count (0 = all CPUs)
	Parallel int `mapstructure:"parallel"`
}

// New returns a Config populated from Viper (flag bindings and/or the
// optional settings file).
func New() Config {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		log.Fatalf("unable to decode settings into struct, %v", err)
	}
	return c
}

// FilterConfig converts the flat settings into the filter engine's config.
func (c Config) FilterConfig() hlapipe.FilterConfig {
	return hlapipe.FilterConfig{
		SkipContaminant: c.SkipContaminant,
		SkipFragment:    c.SkipFragment,
		SkipDuplicate:   c.SkipDuplicate,
		ContaminantTag:  c.ContaminantTag,
		Scope:           hlapipe.FragmentScope(c.FragmentScope),
		RTThreshold:     c.RTThreshold,
	}
}

// PipelineOptions builds the per-run orchestrator options.
func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Filter:             c.FilterConfig(),
		SkipCoTransduction: c.SkipCoTransduction,
		AssumeCoTransduced: c.AssumeCoTransduced,
		Patterns:           c.Patterns,
	}
}
