package cmd

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ulyfm/HLA-Pipeline/config"
	"github.com/ulyfm/HLA-Pipeline/internal/hlapipe"
	"github.com/ulyfm/HLA-Pipeline/internal/output"
	"github.com/ulyfm/HLA-Pipeline/internal/pipeline"
)

// bulkCmd processes many allele directories against a manifest CSV.
var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Process allele directories in bulk against a manifest CSV",
	Long: `Process each subdirectory of the bulk directory as an independent group.
The manifest CSV supplies, per file, the HLA allele and the co-transduced
protein pattern(s), replacing interactive input. Each group gets its own
union and overview tables; every run also feeds the global tables. Groups
share no state and run in parallel; the global union merge is serialized`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config.New()
		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		manifestPath := viper.GetString("manifest")
		bulkDir := viper.GetString("bulk-dir")
		if info, err := os.Stat(bulkDir); err != nil || !info.IsDir() {
			return errors.Errorf("invalid bulk directory %q", bulkDir)
		}
		manifest, err := hlapipe.ReadManifest(manifestPath)
		if err != nil {
			return err
		}

		global, err := output.New(c.Output, c.Union, c.Overview, logger)
		if err != nil {
			return err
		}

		groups, err := os.ReadDir(bulkDir)
		if err != nil {
			return errors.Wrapf(err, "failed to list %s", bulkDir)
		}

		workers := c.Parallel
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		var g errgroup.Group
		g.SetLimit(workers)

		for _, entry := range groups {
			if !entry.IsDir() || excludedDir(entry.Name()) {
				continue
			}
			group := entry.Name()
			g.Go(func() error {
				return processGroup(group, bulkDir, manifest, c, global, logger)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if err := global.SaveUnion(); err != nil {
			return err
		}
		logger.Info("overall union table saved")
		return global.SaveOverview()
	},
}

// processGroup runs one allele directory with its own output adapter and
// mirrors every run into the global tables.
func processGroup(group, bulkDir string, manifest *hlapipe.Manifest, c config.Config, global *output.Adapter, logger *zap.SugaredLogger) error {
	groupOut := filepath.Join(c.Output, group)
	local, err := output.New(groupOut,
		filepath.Join(groupOut, group+"_union.csv"),
		filepath.Join(groupOut, group+"_overview.csv"),
		logger)
	if err != nil {
		return err
	}

	files, err := pipeline.FindFiles([]string{filepath.Join(bulkDir, group)}, c.AllFiles, logger)
	if err != nil {
		return err
	}

	logger.Infow("processing allele directory", "group", group, "files", len(files))
	for _, path := range files {
		opts := c.PipelineOptions()
		opts.AssumeCoTransduced = false
		if entry, ok := manifest.Lookup(path); ok {
			opts.Patterns = entry.Patterns
			opts.AlleleOverride = entry.Allele
		} else {
			logger.Warnw("file not in manifest", "file", path)
		}

		res, err := pipeline.ProcessFile(path, opts, local, logger)
		if err != nil {
			return err
		}
		global.AppendOverview(res.Overview.Row())
		global.AddUnion(res.Overview.Allele, res.Final)
	}

	if err := local.SaveUnion(); err != nil {
		return err
	}
	if err := local.SaveOverview(); err != nil {
		return err
	}
	logger.Infow("allele group saved", "group", group)
	return nil
}

// excludedDir reports whether a bulk subdirectory is one of the pipeline's
// own output folders.
func excludedDir(name string) bool {
	for _, d := range output.ExcludeDirs {
		if name == d {
			return true
		}
	}
	return false
}

func init() {
	RootCmd.AddCommand(bulkCmd)

	bulkCmd.Flags().String("manifest", "", "bulk manifest CSV with file_name and co-transduced protein(s) columns")
	bulkCmd.Flags().String("bulk-dir", "", "directory whose subdirectories are processed as groups")
	bulkCmd.Flags().IntP("parallel", "p", 0, "number of groups to process in parallel (0 = all CPUs)")
	_ = bulkCmd.MarkFlagRequired("manifest")
	_ = bulkCmd.MarkFlagRequired("bulk-dir")

	for _, key := range []string{"manifest", "bulk-dir", "parallel"} {
		if err := viper.BindPFlag(key, bulkCmd.Flags().Lookup(key)); err != nil {
			panic(err)
		}
	}
}
