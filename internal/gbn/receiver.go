// =============================================================================
// 文件: internal/gbn/receiver.go
// 描述: Go-Back-N 可靠传输 - 接收端状态机 (按序接收 + 累积确认)
// =============================================================================
package gbn

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/fclin1/CSC573/internal/packet"
)

// SinkFunc 为每个发送方会话打开输出目的地
//
// 重建的字节流严格按序追加写入，不回退不覆盖。
type SinkFunc func(from string) (io.Writer, error)

// ReceiverConfig 接收端配置
type ReceiverConfig struct {
	Loss        LossPolicy    // 丢包模拟策略, nil = 不丢包
	IdleTimeout time.Duration // 空闲重置间隔, 0 = 不重置
}

// DefaultReceiverConfig 默认配置
func DefaultReceiverConfig() *ReceiverConfig {
	return &ReceiverConfig{
		Loss:        NoLoss{},
		IdleTimeout: DefaultIdleTimeout,
	}
}

// ReceiverStats 接收端统计快照
type ReceiverStats struct {
	PacketsReceived uint64 // 到达的数据包总数
	Delivered       uint64 // 按序交付的段数
	BytesDelivered  uint64 // 交付的载荷字节数
	SimulatedDrops  uint64 // 模拟丢弃数
	ChecksumDrops   uint64 // 校验和失败丢弃数
	OutOfOrder      uint64 // 乱序/重复丢弃数
	AcksSent        uint64 // 发出的确认数
	SessionResets   uint64 // 空闲重置次数
}

// session 单个发送方的会话状态
//
// 会话之间不共享任何可变状态，多个发送方并存时互不干扰。
type session struct {
	expected uint32 // 期望的下一个序列号, 单调不减
	out      io.Writer
}

// Receiver Go-Back-N 接收端
//
// 单一控制循环: 带空闲截止时间的阻塞接收、成帧校验、丢包试验、
// 校验和验证、严格按序接受并发出累积确认。确认号采用"最后一个
// 正确接收的序列号"约定，与发送端 base = ack + 1 的推进一致。
type Receiver struct {
	conn PacketConn
	loss LossPolicy
	idle time.Duration
	sink SinkFunc

	sessions map[string]*session

	// 统计 (原子计数)
	packetsReceived uint64
	delivered       uint64
	bytesDelivered  uint64
	simulatedDrops  uint64
	checksumDrops   uint64
	outOfOrder      uint64
	acksSent        uint64
	sessionResets   uint64
}

// NewReceiver 创建接收端
func NewReceiver(conn PacketConn, sink SinkFunc, cfg *ReceiverConfig) *Receiver {
	if cfg == nil {
		cfg = DefaultReceiverConfig()
	}
	loss := cfg.Loss
	if loss == nil {
		loss = NoLoss{}
	}

	return &Receiver{
		conn:     conn,
		loss:     loss,
		idle:     cfg.IdleTimeout,
		sink:     sink,
		sessions: make(map[string]*session),
	}
}

// Run 接收循环，直到上下文取消或传输层故障
func (r *Receiver) Run(ctx context.Context) error {
	buf := make([]byte, 65535)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deadline := time.Time{}
		if r.idle > 0 {
			deadline = time.Now().Add(r.idle)
		}

		n, from, err := r.conn.RecvFrom(buf, deadline)
		if err != nil {
			if IsTimeout(err) {
				// 空闲超时: 传输被视为放弃，重置全部会话游标，
				// 后续的新传输从零号干净起步
				r.ResetSessions()
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("传输故障: %w", err)
		}

		r.handle(buf[:n], from)
	}
}

// handle 处理单个到达的数据报
func (r *Receiver) handle(datagram []byte, from string) {
	// 成帧错误静默丢弃: 畸形输入绝不能让接收端崩溃
	pkt, err := packet.Decode(datagram)
	if err != nil || !pkt.IsData() {
		return
	}
	atomic.AddUint64(&r.packetsReceived, 1)

	// 丢包试验: 命中则静默丢弃，不投递也不确认
	if r.loss.Drop(pkt.Seq) {
		fmt.Printf("Packet loss, sequence number = %d\n", pkt.Seq)
		atomic.AddUint64(&r.simulatedDrops, 1)
		return
	}

	// 校验和失败与模拟丢包在下游不可区分: 都只是不推进接收状态，
	// 由发送端的超时重传来驱动恢复
	if !pkt.VerifyChecksum() {
		fmt.Printf("Packet loss, sequence number = %d\n", pkt.Seq)
		atomic.AddUint64(&r.checksumDrops, 1)
		return
	}

	sess, err := r.session(from)
	if err != nil {
		fmt.Printf("[ERROR] 打开输出失败 (%s): %v\n", from, err)
		return
	}

	if pkt.Seq != sess.expected {
		// 乱序 (只可能偏高，偏低意味着已交付过): 丢弃，
		// 不推进游标也不发新的确认
		atomic.AddUint64(&r.outOfOrder, 1)
		return
	}

	// 按序: 追加交付、推进游标、确认到新游标的前一个序列号
	if _, err := sess.out.Write(pkt.Payload); err != nil {
		fmt.Printf("[ERROR] 写入输出失败 (%s): %v\n", from, err)
		return
	}
	sess.expected++
	atomic.AddUint64(&r.delivered, 1)
	atomic.AddUint64(&r.bytesDelivered, uint64(len(pkt.Payload)))

	if err := r.conn.SendTo(packet.EncodeAck(sess.expected-1), from); err != nil {
		fmt.Printf("[ERROR] 发送确认失败 (%s): %v\n", from, err)
		return
	}
	atomic.AddUint64(&r.acksSent, 1)
}

// session 获取或创建发送方会话
func (r *Receiver) session(from string) (*session, error) {
	if sess, ok := r.sessions[from]; ok {
		return sess, nil
	}

	out, err := r.sink(from)
	if err != nil {
		return nil, err
	}
	sess := &session{out: out}
	r.sessions[from] = sess
	return sess, nil
}

// ResetSessions 丢弃全部会话状态
//
// 显式的会话重置入口，取代原先 shell 层面的进程自动重启:
// 两次传输之间调用即可让下一次传输从零号序列开始。
func (r *Receiver) ResetSessions() {
	if len(r.sessions) == 0 {
		return
	}

	for from, sess := range r.sessions {
		if c, ok := sess.out.(io.Closer); ok {
			c.Close()
		}
		delete(r.sessions, from)
	}
	atomic.AddUint64(&r.sessionResets, 1)
	fmt.Println("[INFO] 空闲超时，会话已重置")
}

// Stats 统计快照
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		PacketsReceived: atomic.LoadUint64(&r.packetsReceived),
		Delivered:       atomic.LoadUint64(&r.delivered),
		BytesDelivered:  atomic.LoadUint64(&r.bytesDelivered),
		SimulatedDrops:  atomic.LoadUint64(&r.simulatedDrops),
		ChecksumDrops:   atomic.LoadUint64(&r.checksumDrops),
		OutOfOrder:      atomic.LoadUint64(&r.outOfOrder),
		AcksSent:        atomic.LoadUint64(&r.acksSent),
		SessionResets:   atomic.LoadUint64(&r.sessionResets),
	}
}
