// =============================================================================
// 文件: internal/gbn/timer.go
// 描述: Go-Back-N 可靠传输 - 单一重传定时器
// =============================================================================
package gbn

import "time"

// Timer 重传定时器
//
// 整个传输只有一个定时器，绑定窗口基序列号而非单个包
// (经典 Go-Back-N 的单定时器简化)。发送端控制循环是唯一的
// 持有者和修改者，超时事件在循环内同步消费，不存在并发触发。
type Timer struct {
	armed    bool
	deadline time.Time
	interval time.Duration
}

// NewTimer 创建定时器，interval 为固定重传超时
func NewTimer(interval time.Duration) *Timer {
	return &Timer{interval: interval}
}

// Arm 启动定时器 (deadline = now + interval)
func (t *Timer) Arm(now time.Time) {
	t.armed = true
	t.deadline = now.Add(t.interval)
}

// Restart 从当前时刻重新计时
func (t *Timer) Restart(now time.Time) {
	t.Arm(now)
}

// Cancel 停止定时器
func (t *Timer) Cancel() {
	t.armed = false
}

// Armed 定时器是否在运行
func (t *Timer) Armed() bool {
	return t.armed
}

// Expired 定时器是否已到期
func (t *Timer) Expired(now time.Time) bool {
	return t.armed && !now.Before(t.deadline)
}

// Deadline 当前截止时刻 (未启动时为零值)
func (t *Timer) Deadline() time.Time {
	if !t.armed {
		return time.Time{}
	}
	return t.deadline
}
