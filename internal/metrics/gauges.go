// =============================================================================
// 文件: internal/metrics/gauges.go
// 描述: 发送端实时埋点指标（Counter/Gauge）
// =============================================================================
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fclin1/CSC573/internal/gbn"
)

// SenderGauges 发送端窗口指标集合
//
// 数值从发送窗口的线程安全访问器拉取，传输过程中由调用方
// 周期性调用 Observe 刷新。
type SenderGauges struct {
	WindowBase   prometheus.Gauge
	NextSequence prometheus.Gauge
	InFlight     prometheus.Gauge
	PacketsSent  prometheus.Gauge
	Retransmits  prometheus.Gauge
	Timeouts     prometheus.Gauge
}

// NewSenderGauges 创建并注册发送端指标
func NewSenderGauges(registry *prometheus.Registry) *SenderGauges {
	g := &SenderGauges{
		WindowBase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simpleftp",
			Subsystem: "sender",
			Name:      "window_base",
			Help:      "Oldest unacknowledged sequence number",
		}),

		NextSequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simpleftp",
			Subsystem: "sender",
			Name:      "next_sequence",
			Help:      "Next sequence number to be sent",
		}),

		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simpleftp",
			Subsystem: "sender",
			Name:      "in_flight_segments",
			Help:      "Segments sent but not yet acknowledged",
		}),

		PacketsSent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simpleftp",
			Subsystem: "sender",
			Name:      "packets_sent",
			Help:      "Data packets sent including retransmissions",
		}),

		Retransmits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simpleftp",
			Subsystem: "sender",
			Name:      "retransmits",
			Help:      "Retransmitted data packets",
		}),

		Timeouts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simpleftp",
			Subsystem: "sender",
			Name:      "timeouts",
			Help:      "Retransmission timer expirations",
		}),
	}

	// 注册所有指标
	registry.MustRegister(
		g.WindowBase,
		g.NextSequence,
		g.InFlight,
		g.PacketsSent,
		g.Retransmits,
		g.Timeouts,
	)

	return g
}

// Observe 从发送窗口刷新一次全部指标
func (g *SenderGauges) Observe(w *gbn.SendWindow) {
	base, next := w.Outstanding()
	g.WindowBase.Set(float64(base))
	g.NextSequence.Set(float64(next))
	g.InFlight.Set(float64(w.InFlight()))
	g.PacketsSent.Set(float64(w.PacketsSent()))
	g.Retransmits.Set(float64(w.Retransmits()))
	g.Timeouts.Set(float64(w.Timeouts()))
}
