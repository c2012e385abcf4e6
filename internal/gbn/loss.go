// =============================================================================
// 文件: internal/gbn/loss.go
// 描述: Go-Back-N 可靠传输 - 丢包模拟器 (Bernoulli 试验)
// =============================================================================
package gbn

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

// LossPolicy 丢包判定策略
//
// 接收端对每个到达的数据包调用一次。返回 true 表示静默丢弃，
// 不投递也不发确认。
type LossPolicy interface {
	Drop(seq uint32) bool
}

// BernoulliLoss 独立同分布的 Bernoulli 丢包模拟
//
// 每个包以概率 p 被丢弃、概率 1-p 被投递，p ∈ [0, 1)。
// 只作用于数据方向；确认路径不做模拟 (确认丢失天然等价于
// 发送端超时，无需独立代码路径)。
type BernoulliLoss struct {
	p     float64
	rng   *rand.Rand
	drops uint64

	mu sync.Mutex
}

// NewBernoulliLoss 创建丢包模拟器，seed 固定时试验序列可复现
func NewBernoulliLoss(p float64, seed int64) *BernoulliLoss {
	if p < 0 {
		p = 0
	}
	if p >= 1 {
		p = 0.999
	}
	return &BernoulliLoss{
		p:   p,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Drop 执行一次独立试验
func (l *BernoulliLoss) Drop(_ uint32) bool {
	l.mu.Lock()
	hit := l.rng.Float64() < l.p
	l.mu.Unlock()

	if hit {
		atomic.AddUint64(&l.drops, 1)
	}
	return hit
}

// Drops 累计模拟丢包数
func (l *BernoulliLoss) Drops() uint64 {
	return atomic.LoadUint64(&l.drops)
}

// NoLoss 永不丢包的策略 (p = 0 的快捷方式)
type NoLoss struct{}

// Drop 恒为 false
func (NoLoss) Drop(_ uint32) bool { return false }
