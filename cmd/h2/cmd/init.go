package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/jrasky/half2/pkg/config"
	"github.com/jrasky/half2/pkg/lineindex"
	"github.com/jrasky/half2/pkg/metrics"
	"github.com/jrasky/half2/pkg/walker"
)

// initCmd initializes .h2/ with stage/ and logs/, walks the working tree
// once, stages every file, and builds a line index per regular file,
// skipping the implicit ignore set (spec.md 6).
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize half2's index for the current working tree",
	Long: `init creates .h2/, with stage/ and logs/ subdirectories, walks the
working tree once, copies every non-ignored file into stage/, and builds a
line index for it under logs/.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := ctx.Value(ctxConfig).(*config.Config)
	manager := ctx.Value(ctxManager).(*lineindex.Manager)
	collector := ctx.Value(ctxCollector).(*metrics.Collector)

	if err := os.MkdirAll(filepath.Join(cfg.DataDir, "stage"), 0o755); err != nil {
		return fmt.Errorf("creating stage dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.DataDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	if !config.ConfigExists(configPath) {
		if err := config.SaveConfig(cfg, configPath); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	}

	root := "."
	stage := walker.NewStage(filepath.Join(cfg.DataDir, "stage"))
	checkout := walker.NewCheckout(cfg.Ignore)

	return checkout.Walk(root, func(info walker.PathInfo) error {
		path := filepath.Join(root, info.RelPath)

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if err := stage.Put(info.RelPath, f); err != nil {
			f.Close()
			return fmt.Errorf("staging %s: %w", info.RelPath, err)
		}
		f.Close()

		f, err = os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		start := time.Now()
		n, err := manager.Build(info.RelPath, f)
		collector.RecordBuild(info.RelPath, n, time.Since(start))
		if err != nil {
			return fmt.Errorf("indexing %s: %w", info.RelPath, err)
		}
		klog.V(2).Infof("indexed %s (%d lines)", info.RelPath, n)
		return nil
	})
}

func init() {
	rootCmd.AddCommand(initCmd)
}
