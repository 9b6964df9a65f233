package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/jrasky/half2/pkg/config"
	"github.com/jrasky/half2/pkg/lineindex"
	"github.com/jrasky/half2/pkg/logging"
	"github.com/jrasky/half2/pkg/metrics"
	"github.com/jrasky/half2/pkg/walker"
)

type ctxKey string

const (
	ctxConfig     ctxKey = "config"
	ctxManager    ctxKey = "manager"
	ctxCollector  ctxKey = "collector"
	ctxMetricsCtx ctxKey = "metricsCancel"
)

// rootCmd is the base command when called without any subcommands: walk the
// working tree and diff each file against its stored line index.
var rootCmd = &cobra.Command{
	Use:   "h2",
	Short: "half2 - experimental file-differencing snapshot tool",
	Long: `half2 hashes the lines of a working tree's files into a persistent
on-disk index and, on every subsequent run, diffs the tree against that
index to report which lines are unchanged, moved, or new.`,
	PersistentPreRunE: bootstrap,
	PersistentPostRun: teardown,
	RunE:              runDiff,
}

func bootstrap(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	var cfg *config.Config
	if config.ConfigExists(configPath) {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if level := os.Getenv("H2_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	logging.Bootstrap(cfg.LogLevel)

	collector := metrics.NewCollector()
	manager := lineindex.NewManager(cfg.DataDir, cfg.Order)
	manager.SetObserver(collector)

	ctx := cmd.Context()
	var cancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		var metricsCtx context.Context
		metricsCtx, cancel = context.WithCancel(ctx)
		go func() {
			if err := collector.Serve(metricsCtx, cfg.MetricsAddr); err != nil {
				klog.Errorf("metrics server: %v", err)
			}
		}()
	}

	ctx = context.WithValue(ctx, ctxConfig, cfg)
	ctx = context.WithValue(ctx, ctxManager, manager)
	ctx = context.WithValue(ctx, ctxCollector, collector)
	if cancel != nil {
		ctx = context.WithValue(ctx, ctxMetricsCtx, cancel)
	}
	cmd.SetContext(ctx)
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	if manager, ok := ctx.Value(ctxManager).(*lineindex.Manager); ok {
		if err := manager.Close(); err != nil {
			klog.Errorf("closing line-index manager: %v", err)
		}
	}
	if cancel, ok := ctx.Value(ctxMetricsCtx).(context.CancelFunc); ok {
		cancel()
	}
	logging.Flush()
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := ctx.Value(ctxConfig).(*config.Config)
	manager := ctx.Value(ctxManager).(*lineindex.Manager)
	collector := ctx.Value(ctxCollector).(*metrics.Collector)

	root := "."
	checkout := walker.NewCheckout(cfg.Ignore)

	return checkout.Walk(root, func(info walker.PathInfo) error {
		f, err := os.Open(filepath.Join(root, info.RelPath))
		if err != nil {
			return err
		}
		defer f.Close()

		start := time.Now()
		events, err := manager.Diff(info.RelPath, f)
		collector.RecordDiff(info.RelPath, time.Since(start))
		if err != nil {
			return fmt.Errorf("diffing %s: %w", info.RelPath, err)
		}

		unchanged, moved, new_ := 0, 0, 0
		for _, ev := range events {
			switch ev.Kind {
			case lineindex.Unchanged:
				unchanged++
			case lineindex.Moved:
				moved++
			case lineindex.New:
				new_++
			}
		}
		klog.V(1).Infof("%s: %d unchanged, %d moved, %d new", info.RelPath, unchanged, moved, new_)
		fmt.Printf("%s: %d unchanged, %d moved, %d new\n", info.RelPath, unchanged, moved, new_)
		return nil
	})
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", ".h2/config.yaml", "Path to the half2 config file")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Address to serve Prometheus metrics on (disabled if empty)")
}
