// Package logging bootstraps structured logging for half2. The ancestry
// codebase has no logger of its own (fmt.Printf/log.Printf only); this
// package adopts k8s.io/klog/v2, grounded on its use in
// sukryu-golite/pkg/adapters/lockfree/memtable.go, to give the `log`-level
// environment variable named in spec.md 6 somewhere real to land.
package logging

import (
	"flag"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// levelToVerbosity maps the handful of conventional level names to a klog
// verbosity. Anything else is parsed as a raw verbosity integer, falling
// back to 0.
func levelToVerbosity(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return 0
	case "debug":
		return 1
	case "trace":
		return 2
	}
	if v, err := strconv.Atoi(level); err == nil {
		return v
	}
	return 0
}

// Bootstrap initializes klog's flags and sets verbosity from level (the
// value of the H2_LOG_LEVEL environment variable, or a config-file LogLevel).
func Bootstrap(level string) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	_ = fs.Set("v", strconv.Itoa(levelToVerbosity(level)))
	_ = fs.Set("logtostderr", "true")
}

// Flush flushes any buffered log entries. The CLI calls this from its
// teardown hook once a command has run.
func Flush() {
	klog.Flush()
}
