package collector

import "github.com/prometheus/client_golang/prometheus"

// snapshotCollector exposes one finished snapshot to a prometheus registry.
// All wallet metrics are gauges; label uniqueness within a scrape is
// guaranteed by the catalog (assets are unique within one wallet response).
type snapshotCollector struct {
	records []Record
}

// NewSnapshotCollector wraps the records of a single scrape for
// serialization by promhttp.
func NewSnapshotCollector(records []Record) prometheus.Collector {
	return snapshotCollector{records: records}
}

// Describe sends nothing: the collector is unchecked, the record set only
// exists for one scrape.
func (snapshotCollector) Describe(chan<- *prometheus.Desc) {}

func (s snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	for _, r := range s.records {
		desc := prometheus.NewDesc(r.Name, r.Help, nil, r.Labels)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, r.Value)
	}
}
