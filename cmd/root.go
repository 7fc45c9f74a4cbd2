// Package cmd is for command line interactions with the HLA-Pipeline
// application
package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var verbose bool

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "hla-pipeline",
	Short: "Post-process mass-spec peptide identification tables for HLA-peptide discovery",
	Long: `Post-process ProteomeDiscoverer PeptideGroups exports for an HLA-peptide
discovery workflow. Each input table is cleaned through a cascading filter
(contaminant, fragment, duplicate removal), peptides are classified as
co-transduced against user-supplied patterns, and results are aggregated
into a per-run overview table and a persisted cross-run union table`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringP("output", "o", "hla_files", "directory to write audit and summary tables to")
	pf.StringP("union", "u", "union_table.csv", "path of the cross-run union table")
	pf.StringP("overview", "t", "final_table.csv", "path of the per-run overview table")
	pf.Bool("skip-contaminant", false, "disable the contaminant (sp) removal stage")
	pf.Bool("skip-fragment", false, "disable the fragment removal stage")
	pf.Bool("skip-duplicate", false, "disable the duplicate removal stage")
	pf.Bool("skip-cotransduced", false, "skip co-transduction classification entirely")
	pf.Bool("assume-cotransduced", false, "derive one co-transduction pattern from each file name")
	pf.StringP("cotransduced", "c", "", "comma-separated co-transduction patterns")
	pf.String("contaminant-tag", "sp", "accession classification tag that marks contaminants")
	pf.String("fragment-scope", "global", "fragment containment scope: global | protein")
	pf.Float64("rt-threshold", 0.5, "max retention-time difference for fragment containment (negative disables)")
	pf.Bool("all-files", false, "process every file, not just *PeptideGroups.txt")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	for _, key := range []string{
		"output", "union", "overview",
		"skip-contaminant", "skip-fragment", "skip-duplicate",
		"skip-cotransduced", "assume-cotransduced", "cotransduced",
		"contaminant-tag", "fragment-scope", "rt-threshold", "all-files",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(key)); err != nil {
			log.Fatalf("failed to bind flag %s: %v", key, err)
		}
	}
}

// newLogger builds the CLI logger: human-readable console output, debug
// level when --verbose is set.
func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return logger.Sugar()
}
