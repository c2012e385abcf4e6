// =============================================================================
// 文件: internal/gbn/loss_test.go
// 描述: 丢包模拟器测试 (Bernoulli 试验)
// =============================================================================
package gbn

import "testing"

func TestBernoulliLossZero(t *testing.T) {
	l := NewBernoulliLoss(0, 1)

	for i := 0; i < 10000; i++ {
		if l.Drop(uint32(i)) {
			t.Fatalf("p = 0 时第 %d 次试验不应丢包", i)
		}
	}
	if l.Drops() != 0 {
		t.Errorf("丢包计数应为 0: got %d", l.Drops())
	}
}

func TestBernoulliLossRate(t *testing.T) {
	const trials = 20000
	l := NewBernoulliLoss(0.3, 42)

	for i := 0; i < trials; i++ {
		l.Drop(uint32(i))
	}

	rate := float64(l.Drops()) / trials
	if rate < 0.27 || rate > 0.33 {
		t.Errorf("实测丢包率偏离 p = 0.3 过远: got %.4f", rate)
	}
}

func TestBernoulliLossMonotonic(t *testing.T) {
	// 固定其他条件时，丢包数随 p 单调不减
	const trials = 10000
	prev := uint64(0)

	for _, p := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		l := NewBernoulliLoss(p, 7)
		for i := 0; i < trials; i++ {
			l.Drop(uint32(i))
		}
		if l.Drops() < prev {
			t.Errorf("p = %.1f 的丢包数 (%d) 低于更小概率的丢包数 (%d)", p, l.Drops(), prev)
		}
		prev = l.Drops()
	}
}

func TestBernoulliLossClamp(t *testing.T) {
	// p 限定在 [0, 1): 越界输入被收紧而不是 panic
	if l := NewBernoulliLoss(-0.5, 1); l.p != 0 {
		t.Errorf("负概率应收紧为 0: got %f", l.p)
	}
	if l := NewBernoulliLoss(1.5, 1); l.p >= 1 {
		t.Errorf("概率应严格小于 1: got %f", l.p)
	}
}

func TestNoLoss(t *testing.T) {
	var l NoLoss
	for i := 0; i < 100; i++ {
		if l.Drop(uint32(i)) {
			t.Fatal("NoLoss 永不丢包")
		}
	}
}
