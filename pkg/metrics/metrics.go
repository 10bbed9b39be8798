// Package metrics exposes Prometheus counters and gauges for the session
// engine's send/recv pipeline, grounded on the corpus's use of
// github.com/prometheus/client_golang for exposing per-connection network
// statistics (see runZeroInc-sockstats's TCPInfoCollector, adapted here
// to simple counters/gauges since lanenet tracks aggregate session
// behaviour rather than per-connection kernel stats).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanenet",
		Name:      "packets_sent_total",
		Help:      "Packets emitted by the packet builder.",
	})

	FragmentsRetransmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanenet",
		Name:      "fragments_retransmitted_total",
		Help:      "Fragments re-sent after resend_after elapsed on a reliable lane.",
	})

	MessagesReassembled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanenet",
		Name:      "messages_reassembled_total",
		Help:      "Messages completed by the reassembler.",
	})

	ReassemblyBytesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanenet",
		Name:      "reassembly_bytes_evicted_total",
		Help:      "Bytes discarded from the reassembly buffer on timeout or memory-governor eviction.",
	})

	SendBufferBytesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanenet",
		Name:      "send_buffer_bytes_evicted_total",
		Help:      "Bytes of unreliable-lane messages the memory governor refused to buffer.",
	})

	SendBufferBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lanenet",
		Name:      "send_buffer_bytes",
		Help:      "Bytes currently held across all lane send buffers.",
	})

	ReassemblyBufferBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lanenet",
		Name:      "reassembly_buffer_bytes",
		Help:      "Bytes currently held across all in-progress reassembly buffers.",
	})

	MalformedPacketsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lanenet",
		Name:      "malformed_packets_dropped_total",
		Help:      "Inbound packets discarded due to a non-fatal decode or protocol error.",
	})
)
