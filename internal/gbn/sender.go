// =============================================================================
// 文件: internal/gbn/sender.go
// 描述: Go-Back-N 可靠传输 - 发送端状态机 (窗口 + 超时重传)
// =============================================================================
package gbn

import (
	"context"
	"fmt"
	"time"

	"github.com/fclin1/CSC573/internal/packet"
)

// 默认参数
const (
	DefaultWindowSize  = 8
	DefaultTimeout     = 500 * time.Millisecond
	DefaultIdleTimeout = 5 * time.Second
	DefaultMaxRetries  = 10
)

// SenderConfig 发送端配置
type SenderConfig struct {
	WindowSize int           // 窗口大小 N
	Timeout    time.Duration // 固定重传超时
	MaxRetries int           // 连续无进展超时上限, 0 = 不限
}

// DefaultSenderConfig 默认配置
func DefaultSenderConfig() *SenderConfig {
	return &SenderConfig{
		WindowSize: DefaultWindowSize,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// Stats 传输完成统计
type Stats struct {
	Segments    int           // 段总数
	Bytes       int           // 载荷总字节数
	PacketsSent uint64        // 发包总数 (含重传)
	Retransmits uint64        // 重传包数 (跨多次超时含重复)
	Timeouts    uint64        // 超时次数
	Elapsed     time.Duration // 传输耗时
}

// Sender Go-Back-N 发送端
//
// 单一控制循环驱动: 填充窗口、带截止时间等待确认、超时重传整个
// 在途区间。窗口和定时器只在该循环内被修改，确认到达与超时到期
// 不会并发作用于同一窗口状态。
type Sender struct {
	conn     Conn
	segments [][]byte
	window   *SendWindow
	timer    *Timer

	maxRetries int
	bytes      int
}

// NewSender 创建发送端，段在此时一次性固定
func NewSender(conn Conn, segments [][]byte, cfg *SenderConfig) *Sender {
	if cfg == nil {
		cfg = DefaultSenderConfig()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	total := 0
	for _, seg := range segments {
		total += len(seg)
	}

	return &Sender{
		conn:       conn,
		segments:   segments,
		window:     NewSendWindow(cfg.WindowSize),
		timer:      NewTimer(cfg.Timeout),
		maxRetries: cfg.MaxRetries,
		bytes:      total,
	}
}

// Run 执行整个传输，直到全部段被累积确认
//
// 数据损坏和丢包由重传完全掩盖，不会以错误形式浮出；只有传输层
// 故障或超过重试上限才会中止传输。
func (s *Sender) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	total := uint32(len(s.segments))
	buf := make([]byte, 512)
	stalls := 0 // 连续无窗口进展的超时数

	for s.window.Base() < total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// 发送步: 窗口有空位且还有未发送的段
		for s.window.CanSend() && s.window.NextSeq() < total {
			seq := s.window.MarkSent()
			if err := s.conn.Send(packet.EncodeData(seq, s.segments[seq])); err != nil {
				return nil, fmt.Errorf("发送失败: %w", err)
			}
			if !s.timer.Armed() {
				s.timer.Arm(time.Now())
			}
		}

		// 等待确认，至多到定时器截止
		n, err := s.conn.Recv(buf, s.timer.Deadline())
		now := time.Now()

		switch {
		case err == nil:
			if pkt, derr := packet.Decode(buf[:n]); derr == nil && pkt.IsAck() {
				// 累积确认: 低于 base 的过期确认被 OnAck 幂等忽略
				if s.window.OnAck(pkt.Seq) {
					stalls = 0
					if s.window.InFlight() == 0 {
						s.timer.Cancel()
					} else {
						s.timer.Restart(now)
					}
				}
			}
		case IsTimeout(err):
			// 交给下面的到期检查
		default:
			return nil, fmt.Errorf("传输故障: %w", err)
		}

		// 超时: 重传整个在途区间 [base, nextSeq)，这是 Go-Back-N
		// 的定义性行为，而非只重传最旧的包
		if s.timer.Expired(now) {
			base, next := s.window.Outstanding()
			fmt.Printf("Timeout, sequence number = %d\n", base)
			s.window.MarkTimeout()

			stalls++
			if s.maxRetries > 0 && stalls > s.maxRetries {
				return nil, fmt.Errorf("%w: 序列号 %d 重传 %d 次未确认", ErrMaxRetries, base, s.maxRetries)
			}

			for seq := base; seq < next; seq++ {
				if err := s.conn.Send(packet.EncodeData(seq, s.segments[seq])); err != nil {
					return nil, fmt.Errorf("重传失败: %w", err)
				}
				s.window.MarkRetransmit()
			}
			s.timer.Restart(time.Now())
		}
	}

	return &Stats{
		Segments:    len(s.segments),
		Bytes:       s.bytes,
		PacketsSent: s.window.PacketsSent(),
		Retransmits: s.window.Retransmits(),
		Timeouts:    s.window.Timeouts(),
		Elapsed:     time.Since(start),
	}, nil
}

// Window 发送窗口 (指标采集用)
func (s *Sender) Window() *SendWindow {
	return s.window
}
