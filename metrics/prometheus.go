// Package metrics provides a Prometheus-backed implementation of
// veyra.MetricsCollector. It is a separate package so the root veyra
// package never needs to import prometheus/client_golang directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements veyra.MetricsCollector by registering a
// small set of counters and histograms with the given registerer.
type PrometheusCollector struct {
	insertTotal      prometheus.Counter
	insertErrors     prometheus.Counter
	insertDuration   prometheus.Histogram
	batchInsertItems prometheus.Counter
	batchInsertFail  prometheus.Counter
	searchTotal      prometheus.Counter
	searchErrors     prometheus.Counter
	searchDuration   prometheus.Histogram
	searchBatchItems prometheus.Counter
	removeTotal      prometheus.Counter
	removeErrors     prometheus.Counter
	saveTotal        prometheus.Counter
	saveErrors       prometheus.Counter
}

// NewPrometheusCollector registers veyra's metric set under the given
// namespace (typically the collection name) with reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	f := promauto.With(reg)
	return &PrometheusCollector{
		insertTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "insert_total", Help: "Total insert operations.",
		}),
		insertErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "insert_errors_total", Help: "Total failed insert operations.",
		}),
		insertDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "insert_duration_seconds", Help: "Insert operation latency.",
			Buckets: prometheus.DefBuckets,
		}),
		batchInsertItems: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "batch_insert_items_total", Help: "Total vectors submitted via insert_batch.",
		}),
		batchInsertFail: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "batch_insert_failed_total", Help: "Total vectors that failed within insert_batch.",
		}),
		searchTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "search_total", Help: "Total search operations.",
		}),
		searchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "search_errors_total", Help: "Total failed search operations.",
		}),
		searchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "search_duration_seconds", Help: "Search operation latency.",
			Buckets: prometheus.DefBuckets,
		}),
		searchBatchItems: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "search_batch_queries_total", Help: "Total queries submitted via search_batch.",
		}),
		removeTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "remove_total", Help: "Total remove operations.",
		}),
		removeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "remove_errors_total", Help: "Total failed remove operations.",
		}),
		saveTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "save_total", Help: "Total checkpoint saves.",
		}),
		saveErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "save_errors_total", Help: "Total failed checkpoint saves.",
		}),
	}
}

func (p *PrometheusCollector) RecordInsert(duration time.Duration, err error) {
	p.insertTotal.Inc()
	p.insertDuration.Observe(duration.Seconds())
	if err != nil {
		p.insertErrors.Inc()
	}
}

func (p *PrometheusCollector) RecordBatchInsert(count, failed int, duration time.Duration) {
	p.batchInsertItems.Add(float64(count))
	p.batchInsertFail.Add(float64(failed))
}

func (p *PrometheusCollector) RecordSearch(k int, duration time.Duration, err error) {
	p.searchTotal.Inc()
	p.searchDuration.Observe(duration.Seconds())
	if err != nil {
		p.searchErrors.Inc()
	}
}

func (p *PrometheusCollector) RecordSearchBatch(numQueries int, duration time.Duration, err error) {
	p.searchBatchItems.Add(float64(numQueries))
}

func (p *PrometheusCollector) RecordRemove(duration time.Duration, err error) {
	p.removeTotal.Inc()
	if err != nil {
		p.removeErrors.Inc()
	}
}

func (p *PrometheusCollector) RecordSave(duration time.Duration, err error) {
	p.saveTotal.Inc()
	if err != nil {
		p.saveErrors.Inc()
	}
}
