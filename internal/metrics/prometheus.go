package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "filesh"

var (
	descSessionsActive = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "sessions", "active"),
		"Current number of connected sessions", nil, nil)
	descSessionsTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "sessions", "opened_total"),
		"Total number of sessions opened", nil, nil)
	descBytes = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "network", "bytes_total"),
		"Bytes exchanged with clients", []string{"direction"}, nil)
	descCommands = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "commands", "total"),
		"Commands dispatched, by name", []string{"command"}, nil)
	descFailures = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "commands", "failed_total"),
		"Commands that produced an error line", []string{"kind"}, nil)
	descConfirmed = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "commands", "confirmed_deletes_total"),
		"Forced recursive deletes executed after confirmation", nil, nil)
	descErrors = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "errors_total"),
		"Unexpected server-side failures", nil, nil)
)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descSessionsActive
	ch <- descSessionsTotal
	ch <- descBytes
	ch <- descCommands
	ch <- descFailures
	ch <- descConfirmed
	ch <- descErrors
}

// Collect implements prometheus.Collector.  Values are read from the
// same counters that back Snapshot.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
	}
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	gauge(descSessionsActive, c.ActiveSessions())
	counter(descSessionsTotal, c.TotalSessions())
	counter(descBytes, c.TotalBytesIn(), "in")
	counter(descBytes, c.TotalBytesOut(), "out")
	for name, n := range c.Commands() {
		counter(descCommands, n, name)
	}
	counter(descFailures, c.ProtocolErrors(), "protocol")
	counter(descFailures, c.StorageErrors(), "storage")
	counter(descConfirmed, c.ConfirmedDeletes())
	counter(descErrors, c.ErrorCount())
}

// Registry returns a fresh registry exposing c alongside the Go runtime
// and process collectors.
func (c *Collector) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
