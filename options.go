package veyra

import (
	"log/slog"

	"github.com/veyra-db/veyra/archive"
	"github.com/veyra-db/veyra/audit"
	"github.com/veyra-db/veyra/internal/wal"
)

// options collects the values every Option mutates. Applied once, at
// collection construction.
type options struct {
	logger            *Logger
	metricsCollector  MetricsCollector
	archiver          archive.Archiver
	auditSink         audit.Sink
	insertRateLimit   int64
	searchConcurrency int64
	walCompressor     wal.Compressor
}

// Option configures a Collection at creation or load time. Breaking
// changes are expected while the module is pre-release.
type Option func(*options)

// WithLogger configures structured logging for collection operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel is a convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithArchiver configures best-effort remote archiving of snapshot
// directories after a successful save.
func WithArchiver(a archive.Archiver) Option {
	return func(o *options) {
		o.archiver = a
	}
}

// WithAuditSink configures an observational checkpoint audit trail.
func WithAuditSink(s audit.Sink) Option {
	return func(o *options) {
		o.auditSink = s
	}
}

// WithInsertRateLimit caps insert/insert_batch throughput to at most n
// vectors per second. n <= 0 leaves inserts unthrottled (the default).
func WithInsertRateLimit(n int64) Option {
	return func(o *options) {
		o.insertRateLimit = n
	}
}

// WithSearchConcurrency bounds how many goroutines search_batch may run
// concurrently. n <= 0 defaults to min(GOMAXPROCS, 8).
func WithSearchConcurrency(n int64) Option {
	return func(o *options) {
		o.searchConcurrency = n
	}
}

// WithWALCompression configures transparent payload compression for the
// collection's write-ahead log. Off by default.
func WithWALCompression(c wal.Compressor) Option {
	return func(o *options) {
		o.walCompressor = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}
