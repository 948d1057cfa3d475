package jetdb

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is a snapshot of page store activity for one DB handle.
type Stats struct {
	PageReads   uint64
	CacheHits   uint64
	CacheMisses uint64
}

type metrics struct {
	pageReads   atomic.Uint64
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	promReads  prometheus.Counter
	promHits   prometheus.Counter
	promMisses prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		promReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jetdb_page_reads_total",
			Help: "Pages read from the database file",
		}),
		promHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jetdb_page_cache_hits_total",
			Help: "Page reads served from the page cache",
		}),
		promMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jetdb_page_cache_misses_total",
			Help: "Page reads that missed the page cache",
		}),
	}
	if reg != nil {
		m.promReads = register(reg, m.promReads)
		m.promHits = register(reg, m.promHits)
		m.promMisses = register(reg, m.promMisses)
	}
	return m
}

// register adds c to reg, reusing the collector already registered under
// the same name when several handles share one registry.
func register(reg prometheus.Registerer, c prometheus.Counter) prometheus.Counter {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) pageRead() {
	m.pageReads.Add(1)
	m.promReads.Inc()
}

func (m *metrics) cacheHit() {
	m.cacheHits.Add(1)
	m.promHits.Inc()
}

func (m *metrics) cacheMiss() {
	m.cacheMisses.Add(1)
	m.promMisses.Inc()
}

func (m *metrics) snapshot() Stats {
	return Stats{
		PageReads:   m.pageReads.Load(),
		CacheHits:   m.cacheHits.Load(),
		CacheMisses: m.cacheMisses.Load(),
	}
}
