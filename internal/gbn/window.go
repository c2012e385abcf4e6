// =============================================================================
// 文件: internal/gbn/window.go
// 描述: Go-Back-N 可靠传输 - 发送窗口 (滑动窗口)
// =============================================================================
package gbn

import "sync"

// SendWindow 发送窗口
//
// 不变量: base ≤ nextSeq ≤ base + size，在途包数 nextSeq - base 不超过 size。
type SendWindow struct {
	base    uint32 // 窗口基序列号 (最小未确认)
	nextSeq uint32 // 下一个待发送序列号
	size    uint32 // 窗口大小 N

	// 统计
	totalSent       uint64
	totalRetransmit uint64
	totalTimeouts   uint64

	mu sync.RWMutex
}

// NewSendWindow 创建发送窗口
func NewSendWindow(size int) *SendWindow {
	if size < 1 {
		size = 1
	}
	return &SendWindow{size: uint32(size)}
}

// CanSend 窗口是否还有空位
func (w *SendWindow) CanSend() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.nextSeq-w.base < w.size
}

// MarkSent 记录序列号 nextSeq 的首次发送并推进 nextSeq
func (w *SendWindow) MarkSent() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()

	seq := w.nextSeq
	w.nextSeq++
	w.totalSent++
	return seq
}

// OnAck 处理累积确认
//
// ack 确认序列号 ≤ ack 的全部包。低于 base 的过期确认被忽略
// (累积语义下更低的确认不可能使窗口后退)。返回窗口是否前移。
func (w *SendWindow) OnAck(ack uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ack < w.base || ack >= w.nextSeq {
		return false
	}

	w.base = ack + 1
	return true
}

// Outstanding 当前在途的序列号区间 [base, nextSeq)
func (w *SendWindow) Outstanding() (base, nextSeq uint32) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.base, w.nextSeq
}

// MarkRetransmit 记录一次重传
func (w *SendWindow) MarkRetransmit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.totalRetransmit++
	w.totalSent++
}

// MarkTimeout 记录一次超时事件
func (w *SendWindow) MarkTimeout() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.totalTimeouts++
}

// Base 获取基序列号
func (w *SendWindow) Base() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.base
}

// NextSeq 获取下一个序列号
func (w *SendWindow) NextSeq() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.nextSeq
}

// InFlight 在途包数
func (w *SendWindow) InFlight() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return int(w.nextSeq - w.base)
}

// Retransmits 累计重传包数 (跨多次超时含重复)
func (w *SendWindow) Retransmits() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.totalRetransmit
}

// Timeouts 累计超时次数
func (w *SendWindow) Timeouts() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.totalTimeouts
}

// PacketsSent 累计发包数 (含重传)
func (w *SendWindow) PacketsSent() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.totalSent
}

// Reset 重置窗口，新传输从零号开始
func (w *SendWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.base = 0
	w.nextSeq = 0
	w.totalSent = 0
	w.totalRetransmit = 0
	w.totalTimeouts = 0
}
