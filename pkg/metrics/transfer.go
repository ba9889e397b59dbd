package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultNamespace  = "gust"
	subsystemTransfer = "transfer"
)

// TransferCollector tracks one session's wire statistics and exposes
// them through a prometheus registry. The window sender and the
// in-order receiver both feed it; the CLI prints a snapshot when the
// session ends.
type TransferCollector struct {
	mu        sync.RWMutex
	namespace string
	registry  *prometheus.Registry

	startTime       time.Time
	bytesSent       uint64
	bytesRetransmit uint64
	bytesReceived   uint64
	packetsSent     uint64
	packetsReceived uint64
	windowResends   uint64
	checksumDrops   uint64
	discards        uint64
	stalledRounds   uint64
}

// TransferSnapshot is a point-in-time view of the collected metrics.
type TransferSnapshot struct {
	Elapsed         time.Duration
	BytesSent       uint64
	BytesReceived   uint64
	BytesRetransmit uint64
	PacketsSent     uint64
	PacketsReceived uint64
	WindowResends   uint64
	ChecksumDrops   uint64
	Discards        uint64
	StalledRounds   uint64
	ThroughputBps   float64
	GoodputBps      float64
	RetransmitRate  float64
}

// NewTransferCollector creates a collector and wires up the prometheus
// collectors under the given namespace.
func NewTransferCollector(namespace string) *TransferCollector {
	if strings.TrimSpace(namespace) == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	tc := &TransferCollector{
		namespace: namespace,
		registry:  reg,
	}
	tc.registerMetrics()
	return tc
}

// Registry returns the prometheus registry managed by this collector.
func (c *TransferCollector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveSend records payload bytes put on the wire. Retransmitted
// bytes are accounted separately so goodput and throughput stay
// distinguishable.
func (c *TransferCollector) ObserveSend(bytes int, retransmit bool) {
	if bytes < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureStartTimeLocked()
	c.packetsSent++
	if retransmit {
		c.bytesRetransmit += uint64(bytes)
		return
	}
	c.bytesSent += uint64(bytes)
}

// ObserveReceive records an accepted packet's payload bytes.
func (c *TransferCollector) ObserveReceive(bytes int) {
	if bytes < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureStartTimeLocked()
	c.packetsReceived++
	c.bytesReceived += uint64(bytes)
}

// ObserveWindowResend records one go-back-N retransmission round.
func (c *TransferCollector) ObserveWindowResend() {
	c.mu.Lock()
	c.ensureStartTimeLocked()
	c.windowResends++
	c.mu.Unlock()
}

// ObserveChecksumDrop records a datagram discarded for a bad checksum.
func (c *TransferCollector) ObserveChecksumDrop() {
	c.mu.Lock()
	c.ensureStartTimeLocked()
	c.checksumDrops++
	c.mu.Unlock()
}

// ObserveDiscard records a datagram discarded for wrong flags or an
// out-of-order sequence number.
func (c *TransferCollector) ObserveDiscard() {
	c.mu.Lock()
	c.ensureStartTimeLocked()
	c.discards++
	c.mu.Unlock()
}

// ObserveStalledRound records a receive round that made no progress.
func (c *TransferCollector) ObserveStalledRound() {
	c.mu.Lock()
	c.ensureStartTimeLocked()
	c.stalledRounds++
	c.mu.Unlock()
}

// Snapshot creates a read-only view of the collected metrics.
func (c *TransferCollector) Snapshot() TransferSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buildSnapshotLocked(time.Now())
}

func (c *TransferCollector) buildSnapshotLocked(now time.Time) TransferSnapshot {
	primaryBytes := c.bytesSent
	if c.bytesReceived > primaryBytes {
		primaryBytes = c.bytesReceived
	}

	elapsed := time.Duration(0)
	if !c.startTime.IsZero() {
		elapsed = now.Sub(c.startTime)
	}

	throughput := rateFromBytes(primaryBytes+c.bytesRetransmit, elapsed)
	goodput := rateFromBytes(primaryBytes, elapsed)

	var retransRatio float64
	if primaryBytes+c.bytesRetransmit > 0 {
		retransRatio = float64(c.bytesRetransmit) / float64(primaryBytes+c.bytesRetransmit)
	}

	return TransferSnapshot{
		Elapsed:         elapsed,
		BytesSent:       c.bytesSent,
		BytesReceived:   c.bytesReceived,
		BytesRetransmit: c.bytesRetransmit,
		PacketsSent:     c.packetsSent,
		PacketsReceived: c.packetsReceived,
		WindowResends:   c.windowResends,
		ChecksumDrops:   c.checksumDrops,
		Discards:        c.discards,
		StalledRounds:   c.stalledRounds,
		ThroughputBps:   throughput,
		GoodputBps:      goodput,
		RetransmitRate:  retransRatio,
	}
}

func (c *TransferCollector) registerMetrics() {
	makeGauge := func(name, help string, valueFn func(TransferSnapshot) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Subsystem: subsystemTransfer,
			Name:      name,
			Help:      help,
		}, func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return valueFn(c.buildSnapshotLocked(time.Now()))
		})
	}

	makeCounter := func(name, help string, valueFn func() uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: subsystemTransfer,
			Name:      name,
			Help:      help,
		}, func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return float64(valueFn())
		})
	}

	c.registry.MustRegister(makeGauge(
		"throughput_bytes_per_second",
		"Transfer throughput including retransmissions.",
		func(s TransferSnapshot) float64 { return s.ThroughputBps },
	))
	c.registry.MustRegister(makeGauge(
		"goodput_bytes_per_second",
		"Effective data rate excluding retransmissions.",
		func(s TransferSnapshot) float64 { return s.GoodputBps },
	))
	c.registry.MustRegister(makeGauge(
		"retransmission_ratio",
		"Ratio of retransmitted bytes to total transmitted bytes.",
		func(s TransferSnapshot) float64 { return s.RetransmitRate },
	))

	c.registry.MustRegister(makeCounter(
		"bytes_sent_total",
		"Payload bytes sent for the first time.",
		func() uint64 { return c.bytesSent },
	))
	c.registry.MustRegister(makeCounter(
		"bytes_retransmitted_total",
		"Payload bytes resent by go-back-N rounds.",
		func() uint64 { return c.bytesRetransmit },
	))
	c.registry.MustRegister(makeCounter(
		"bytes_received_total",
		"Payload bytes accepted in order.",
		func() uint64 { return c.bytesReceived },
	))
	c.registry.MustRegister(makeCounter(
		"packets_sent_total",
		"Datagrams put on the wire.",
		func() uint64 { return c.packetsSent },
	))
	c.registry.MustRegister(makeCounter(
		"packets_received_total",
		"Datagrams accepted in order.",
		func() uint64 { return c.packetsReceived },
	))
	c.registry.MustRegister(makeCounter(
		"window_resends_total",
		"Whole-window retransmissions triggered by ack timeouts.",
		func() uint64 { return c.windowResends },
	))
	c.registry.MustRegister(makeCounter(
		"checksum_drops_total",
		"Datagrams dropped for a failed checksum.",
		func() uint64 { return c.checksumDrops },
	))
	c.registry.MustRegister(makeCounter(
		"discards_total",
		"Datagrams discarded for wrong flags or sequence numbers.",
		func() uint64 { return c.discards },
	))
	c.registry.MustRegister(makeCounter(
		"stalled_rounds_total",
		"Receive rounds that accepted no new packet.",
		func() uint64 { return c.stalledRounds },
	))
}

func (c *TransferCollector) ensureStartTimeLocked() {
	if c.startTime.IsZero() {
		c.startTime = time.Now()
	}
}

func rateFromBytes(bytes uint64, elapsed time.Duration) float64 {
	if bytes == 0 || elapsed <= 0 {
		return 0
	}
	return float64(bytes) / elapsed.Seconds()
}
