// Package metrics exposes optional Prometheus instrumentation for BufTree
// and the line-index builder/diff, adapted from the ancestry codebase's
// pkg/api/metrics.go (same promauto CounterVec/HistogramVec shapes),
// renamed from HTTP/DB-operation metrics to this domain's node and
// build/diff metrics. There is no HTTP API in this repository's scope, so
// the ancestry's InstrumentHandler/InstrumentAuthMiddleware middleware is
// dropped; only a promhttp handler over the Collector's own registry
// survives, gated by Config.MetricsAddr.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every Prometheus metric half2 records, registered
// against a private registry rather than the global default one. Each
// invocation of the CLI constructs its own Collector, so a private
// registry keeps repeated in-process construction (tests, a long-lived
// host embedding half2 as a library) from panicking on duplicate
// registration against prometheus.DefaultRegisterer.
type Collector struct {
	registry *prometheus.Registry

	nodeAllocations prometheus.Counter
	nodeFrees       prometheus.Counter
	splits          prometheus.Counter
	merges          prometheus.Counter
	rotations       prometheus.Counter

	buildDuration *prometheus.HistogramVec
	diffDuration  *prometheus.HistogramVec
	linesIndexed  prometheus.Counter
}

// NewCollector creates and registers half2's metrics against a fresh
// registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		nodeAllocations: factory.NewCounter(prometheus.CounterOpts{
			Name: "half2_buftree_node_allocations_total",
			Help: "Total number of BufTree node slots allocated.",
		}),
		nodeFrees: factory.NewCounter(prometheus.CounterOpts{
			Name: "half2_buftree_node_frees_total",
			Help: "Total number of BufTree node slots freed.",
		}),
		splits: factory.NewCounter(prometheus.CounterOpts{
			Name: "half2_buftree_splits_total",
			Help: "Total number of proactive node splits performed.",
		}),
		merges: factory.NewCounter(prometheus.CounterOpts{
			Name: "half2_buftree_merges_total",
			Help: "Total number of node merges performed on remove.",
		}),
		rotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "half2_buftree_rotations_total",
			Help: "Total number of sibling rotations performed on remove.",
		}),
		buildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "half2_lineindex_build_duration_seconds",
			Help:    "Duration of building a line index for one file.",
			Buckets: prometheus.DefBuckets,
		}, []string{"file"}),
		diffDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "half2_lineindex_diff_duration_seconds",
			Help:    "Duration of diffing one file against its line index.",
			Buckets: prometheus.DefBuckets,
		}, []string{"file"}),
		linesIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "half2_lineindex_lines_indexed_total",
			Help: "Total number of lines ingested across all builds.",
		}),
	}
}

// NodeAllocated, NodeFreed, Split, Merge and Rotation implement
// buftree.Observer, so a *Collector can be passed directly to
// Tree.SetObserver.
func (c *Collector) NodeAllocated() { c.nodeAllocations.Inc() }
func (c *Collector) NodeFreed()     { c.nodeFrees.Inc() }
func (c *Collector) Split()         { c.splits.Inc() }
func (c *Collector) Merge()         { c.merges.Inc() }
func (c *Collector) Rotation()      { c.rotations.Inc() }

// RecordBuild records the wall-clock duration of a builder run over file.
func (c *Collector) RecordBuild(file string, lines int, dur time.Duration) {
	c.buildDuration.WithLabelValues(file).Observe(dur.Seconds())
	c.linesIndexed.Add(float64(lines))
}

// RecordDiff records the wall-clock duration of a diff run over file.
func (c *Collector) RecordDiff(file string, dur time.Duration) {
	c.diffDuration.WithLabelValues(file).Observe(dur.Seconds())
}

// Serve starts a promhttp listener on addr, serving this Collector's own
// registry, and blocks until ctx is cancelled. A non-blocking caller
// should run this in a goroutine.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
