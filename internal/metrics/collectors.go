// =============================================================================
// 文件: internal/metrics/collectors.go
// 描述: Prometheus 指标收集器定义
// =============================================================================
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fclin1/CSC573/internal/gbn"
)

// =============================================================================
// Receiver 收集器
// =============================================================================

// ReceiverStatsProvider 接收端统计数据接口
type ReceiverStatsProvider interface {
	Stats() gbn.ReceiverStats
}

// ReceiverCollector 接收端指标收集器
type ReceiverCollector struct {
	statsProvider ReceiverStatsProvider

	// 描述符
	packetsReceivedDesc *prometheus.Desc
	deliveredDesc       *prometheus.Desc
	bytesDeliveredDesc  *prometheus.Desc
	simulatedDropsDesc  *prometheus.Desc
	checksumDropsDesc   *prometheus.Desc
	outOfOrderDesc      *prometheus.Desc
	acksSentDesc        *prometheus.Desc
	sessionResetsDesc   *prometheus.Desc
}

// NewReceiverCollector 创建接收端收集器
func NewReceiverCollector(provider ReceiverStatsProvider) *ReceiverCollector {
	namespace := "simpleftp"
	subsystem := "receiver"

	return &ReceiverCollector{
		statsProvider: provider,

		packetsReceivedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "packets_received_total"),
			"Total data packets that arrived at the receiver",
			nil, nil,
		),
		deliveredDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "segments_delivered_total"),
			"Segments accepted in order and delivered to the output",
			nil, nil,
		),
		bytesDeliveredDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "bytes_delivered_total"),
			"Payload bytes delivered to the output",
			nil, nil,
		),
		simulatedDropsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "simulated_drops_total"),
			"Packets discarded by the loss simulator",
			nil, nil,
		),
		checksumDropsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "checksum_drops_total"),
			"Packets discarded due to checksum mismatch",
			nil, nil,
		),
		outOfOrderDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "out_of_order_total"),
			"Packets discarded as out of order or duplicate",
			nil, nil,
		),
		acksSentDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "acks_sent_total"),
			"Cumulative acknowledgments sent",
			nil, nil,
		),
		sessionResetsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "session_resets_total"),
			"Idle-timeout session resets",
			nil, nil,
		),
	}
}

// Describe 实现 prometheus.Collector
func (c *ReceiverCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetsReceivedDesc
	ch <- c.deliveredDesc
	ch <- c.bytesDeliveredDesc
	ch <- c.simulatedDropsDesc
	ch <- c.checksumDropsDesc
	ch <- c.outOfOrderDesc
	ch <- c.acksSentDesc
	ch <- c.sessionResetsDesc
}

// Collect 实现 prometheus.Collector
func (c *ReceiverCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.statsProvider.Stats()

	ch <- prometheus.MustNewConstMetric(c.packetsReceivedDesc,
		prometheus.CounterValue, float64(stats.PacketsReceived))
	ch <- prometheus.MustNewConstMetric(c.deliveredDesc,
		prometheus.CounterValue, float64(stats.Delivered))
	ch <- prometheus.MustNewConstMetric(c.bytesDeliveredDesc,
		prometheus.CounterValue, float64(stats.BytesDelivered))
	ch <- prometheus.MustNewConstMetric(c.simulatedDropsDesc,
		prometheus.CounterValue, float64(stats.SimulatedDrops))
	ch <- prometheus.MustNewConstMetric(c.checksumDropsDesc,
		prometheus.CounterValue, float64(stats.ChecksumDrops))
	ch <- prometheus.MustNewConstMetric(c.outOfOrderDesc,
		prometheus.CounterValue, float64(stats.OutOfOrder))
	ch <- prometheus.MustNewConstMetric(c.acksSentDesc,
		prometheus.CounterValue, float64(stats.AcksSent))
	ch <- prometheus.MustNewConstMetric(c.sessionResetsDesc,
		prometheus.CounterValue, float64(stats.SessionResets))
}
