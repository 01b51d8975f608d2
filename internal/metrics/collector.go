package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RecognizerStats reports how many recognizer backends are loaded.
type RecognizerStats interface {
	Len() int
}

// QueueStats reports drop-folder worker pool state.
type QueueStats interface {
	QueueDepth() int
	Active() int
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	pool        *pgxpool.Pool
	recognizers RecognizerStats
	queue       QueueStats

	recognizersLoaded *prometheus.Desc
	queueDepth        *prometheus.Desc
	activeJobs        *prometheus.Desc
	dbTotalConns      *prometheus.Desc
	dbAcquiredConns   *prometheus.Desc
	dbIdleConns       *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// Any argument may be nil; its gauges then report 0.
func NewCollector(pool *pgxpool.Pool, recognizers RecognizerStats, queue QueueStats) *Collector {
	return &Collector{
		pool:        pool,
		recognizers: recognizers,
		queue:       queue,
		recognizersLoaded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "recognizers_loaded"),
			"Recognizer backends constructed and cached in this process.",
			nil, nil,
		),
		queueDepth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "watch", "queue_depth"),
			"Drop-folder jobs waiting for a worker.",
			nil, nil,
		),
		activeJobs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "watch", "active_jobs"),
			"Drop-folder jobs currently being processed.",
			nil, nil,
		),
		dbTotalConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "total_conns"),
			"Total database pool connections.",
			nil, nil,
		),
		dbAcquiredConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "acquired_conns"),
			"Database pool connections currently in use.",
			nil, nil,
		),
		dbIdleConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "idle_conns"),
			"Database pool idle connections.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.recognizersLoaded
	ch <- c.queueDepth
	ch <- c.activeJobs
	ch <- c.dbTotalConns
	ch <- c.dbAcquiredConns
	ch <- c.dbIdleConns
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	var loaded float64
	if c.recognizers != nil {
		loaded = float64(c.recognizers.Len())
	}
	gauge(c.recognizersLoaded, loaded)

	var depth, active float64
	if c.queue != nil {
		depth = float64(c.queue.QueueDepth())
		active = float64(c.queue.Active())
	}
	gauge(c.queueDepth, depth)
	gauge(c.activeJobs, active)

	if c.pool != nil {
		stat := c.pool.Stat()
		gauge(c.dbTotalConns, float64(stat.TotalConns()))
		gauge(c.dbAcquiredConns, float64(stat.AcquiredConns()))
		gauge(c.dbIdleConns, float64(stat.IdleConns()))
	} else {
		gauge(c.dbTotalConns, 0)
		gauge(c.dbAcquiredConns, 0)
		gauge(c.dbIdleConns, 0)
	}
}
