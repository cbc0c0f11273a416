// Package srtmetrics exposes SRT endpoint activity as Prometheus metrics,
// implementing Describe/Collect directly over atomically-updated counters
// rather than using the promauto helpers, since client/server endpoints
// update counts from multiple goroutines (demux, send-timer, application)
// without a central registration point.
package srtmetrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks segment-level counters for one SRT endpoint (client or
// server). The zero value is ready to use.
type Collector struct {
	segmentsSent        atomic.Uint64
	segmentsReceived     atomic.Uint64
	segmentsDropped      atomic.Uint64
	segmentsCorrupted    atomic.Uint64
	segmentsRetransmitted atomic.Uint64

	mu       sync.Mutex
	unacked  map[string]int // tcb id -> unacked segment count, for the gauge vec

	role string // "client" or "server", used as a constant label
}

// NewCollector returns a Collector labelled with role ("client" or
// "server") for the metrics it exports.
func NewCollector(role string) *Collector {
	return &Collector{
		role:    role,
		unacked: make(map[string]int),
	}
}

var (
	sentDesc = prometheus.NewDesc("srt_segments_sent_total", "Total segments written to the channel.", []string{"role"}, nil)
	recvDesc = prometheus.NewDesc("srt_segments_received_total", "Total segments successfully decoded.", []string{"role"}, nil)
	dropDesc = prometheus.NewDesc("srt_segments_dropped_total", "Total segments discarded by fault injection.", []string{"role"}, nil)
	corrDesc = prometheus.NewDesc("srt_segments_corrupted_total", "Total segments discarded for checksum mismatch.", []string{"role"}, nil)
	retxDesc = prometheus.NewDesc("srt_segments_retransmitted_total", "Total Go-Back-N retransmissions issued.", []string{"role"}, nil)
	unackDesc = prometheus.NewDesc("srt_tcb_unacked_segments", "Unacknowledged segments currently in flight per TCB.", []string{"role", "tcb"}, nil)
)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sentDesc
	ch <- recvDesc
	ch <- dropDesc
	ch <- corrDesc
	ch <- retxDesc
	ch <- unackDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(sentDesc, prometheus.CounterValue, float64(c.segmentsSent.Load()), c.role)
	ch <- prometheus.MustNewConstMetric(recvDesc, prometheus.CounterValue, float64(c.segmentsReceived.Load()), c.role)
	ch <- prometheus.MustNewConstMetric(dropDesc, prometheus.CounterValue, float64(c.segmentsDropped.Load()), c.role)
	ch <- prometheus.MustNewConstMetric(corrDesc, prometheus.CounterValue, float64(c.segmentsCorrupted.Load()), c.role)
	ch <- prometheus.MustNewConstMetric(retxDesc, prometheus.CounterValue, float64(c.segmentsRetransmitted.Load()), c.role)

	c.mu.Lock()
	defer c.mu.Unlock()
	for tcbID, n := range c.unacked {
		ch <- prometheus.MustNewConstMetric(unackDesc, prometheus.GaugeValue, float64(n), c.role, tcbID)
	}
}

func (c *Collector) SegmentSent()        { c.segmentsSent.Add(1) }
func (c *Collector) SegmentReceived()    { c.segmentsReceived.Add(1) }
func (c *Collector) SegmentDropped()     { c.segmentsDropped.Add(1) }
func (c *Collector) SegmentCorrupted()   { c.segmentsCorrupted.Add(1) }
func (c *Collector) SegmentRetransmitted(n int) {
	c.segmentsRetransmitted.Add(uint64(n))
}

// SetUnacked records the current unacknowledged-segment count for a TCB,
// keyed by its correlation id. Passing n == 0 removes the TCB's gauge
// series (connection closed).
func (c *Collector) SetUnacked(tcbID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == 0 {
		delete(c.unacked, tcbID)
		return
	}
	if c.unacked == nil {
		c.unacked = make(map[string]int)
	}
	c.unacked[tcbID] = n
}
