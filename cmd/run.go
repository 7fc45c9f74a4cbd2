package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ulyfm/HLA-Pipeline/config"
	"github.com/ulyfm/HLA-Pipeline/internal/output"
	"github.com/ulyfm/HLA-Pipeline/internal/pipeline"
)

// runCmd processes one directory of PeptideGroups files.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a directory of PeptideGroups files",
	Long: `Process every PeptideGroups file found under the input directory: clean
each table through the cascading filters, classify co-transduced peptides,
write the audit side-tables, and fold the surviving peptides into the
union and overview tables`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config.New()
		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		files, err := pipeline.FindFiles([]string{c.Input}, c.AllFiles, logger)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			logger.Warnw("no input files found", "input", c.Input)
			return nil
		}

		out, err := output.New(c.Output, c.Union, c.Overview, logger)
		if err != nil {
			return err
		}

		opts := c.PipelineOptions()
		for _, path := range files {
			logger.Infow("processing", "file", path)
			if _, err := pipeline.ProcessFile(path, opts, out, logger); err != nil {
				return err
			}
		}

		if err := out.SaveUnion(); err != nil {
			return err
		}
		logger.Info("union table saved")
		if err := out.SaveOverview(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("input", "i", "hla_files", "directory with PeptideGroups files to process")
	if err := viper.BindPFlag("input", runCmd.Flags().Lookup("input")); err != nil {
		panic(err)
	}
}
