// =============================================================================
// 文件: internal/gbn/receiver_test.go
// 描述: 接收端状态机测试 (按序接收、累积确认、丢弃策略)
// =============================================================================
package gbn

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/fclin1/CSC573/internal/packet"
)

// captureConn 记录发出确认的传输桩
type captureConn struct {
	acks map[string][]uint32
}

func newCaptureConn() *captureConn {
	return &captureConn{acks: make(map[string][]uint32)}
}

func (c *captureConn) RecvFrom(buf []byte, deadline time.Time) (int, string, error) {
	return 0, "", fmt.Errorf("测试桩不支持接收")
}

func (c *captureConn) SendTo(p []byte, to string) error {
	pkt, err := packet.Decode(p)
	if err != nil || !pkt.IsAck() {
		return fmt.Errorf("接收端只应发出确认包")
	}
	c.acks[to] = append(c.acks[to], pkt.Seq)
	return nil
}

func (c *captureConn) Close() error { return nil }

// bufferSink 每个发送方一个内存缓冲
func bufferSink(outputs map[string]*bytes.Buffer) SinkFunc {
	return func(from string) (io.Writer, error) {
		buf := &bytes.Buffer{}
		outputs[from] = buf
		return buf, nil
	}
}

func newTestReceiver(loss LossPolicy) (*Receiver, *captureConn, map[string]*bytes.Buffer) {
	conn := newCaptureConn()
	outputs := make(map[string]*bytes.Buffer)
	recv := NewReceiver(conn, bufferSink(outputs), &ReceiverConfig{Loss: loss})
	return recv, conn, outputs
}

func TestReceiverInOrderDelivery(t *testing.T) {
	recv, conn, outputs := newTestReceiver(nil)

	for i, payload := range []string{"first", "second", "third"} {
		recv.handle(packet.EncodeData(uint32(i), []byte(payload)), "peer")
	}

	if got := outputs["peer"].String(); got != "firstsecondthird" {
		t.Errorf("交付内容不正确: got %q", got)
	}
	// 确认号命名最后一个正确接收的序列号
	want := []uint32{0, 1, 2}
	if len(conn.acks["peer"]) != len(want) {
		t.Fatalf("确认数不正确: got %d, want %d", len(conn.acks["peer"]), len(want))
	}
	for i, seq := range want {
		if conn.acks["peer"][i] != seq {
			t.Errorf("第 %d 个确认号不正确: got %d, want %d", i, conn.acks["peer"][i], seq)
		}
	}
}

func TestReceiverOutOfOrderDiscard(t *testing.T) {
	recv, conn, outputs := newTestReceiver(nil)

	recv.handle(packet.EncodeData(0, []byte("zero")), "peer")
	// 跳号包: 丢弃且不发新的确认，游标不动
	recv.handle(packet.EncodeData(2, []byte("two")), "peer")
	recv.handle(packet.EncodeData(3, []byte("three")), "peer")

	if got := outputs["peer"].String(); got != "zero" {
		t.Errorf("乱序包不应被交付: got %q", got)
	}
	if len(conn.acks["peer"]) != 1 || conn.acks["peer"][0] != 0 {
		t.Errorf("只应有对 0 的确认: got %v", conn.acks["peer"])
	}

	stats := recv.Stats()
	if stats.OutOfOrder != 2 {
		t.Errorf("乱序计数不正确: got %d, want 2", stats.OutOfOrder)
	}

	// 缺口补上后恢复按序交付
	recv.handle(packet.EncodeData(1, []byte("one")), "peer")
	recv.handle(packet.EncodeData(2, []byte("two")), "peer")
	recv.handle(packet.EncodeData(3, []byte("three")), "peer")

	if got := outputs["peer"].String(); got != "zeroonetwothree" {
		t.Errorf("补洞后交付不正确: got %q", got)
	}
}

func TestReceiverDuplicateDiscard(t *testing.T) {
	recv, conn, outputs := newTestReceiver(nil)

	recv.handle(packet.EncodeData(0, []byte("data")), "peer")
	// 重复包 (低于游标只可能是已交付过的): 丢弃不重复交付
	recv.handle(packet.EncodeData(0, []byte("data")), "peer")

	if got := outputs["peer"].String(); got != "data" {
		t.Errorf("重复包不应被再次交付: got %q", got)
	}
	if len(conn.acks["peer"]) != 1 {
		t.Errorf("重复包不应产生新确认: got %v", conn.acks["peer"])
	}
}

func TestReceiverChecksumDrop(t *testing.T) {
	recv, conn, outputs := newTestReceiver(nil)

	corrupted := packet.EncodeData(0, []byte("payload"))
	corrupted[packet.HeaderSize] ^= 0x80 // 单比特翻转

	recv.handle(corrupted, "peer")

	if out, ok := outputs["peer"]; ok && out.Len() > 0 {
		t.Error("校验失败的包不应被交付")
	}
	if len(conn.acks["peer"]) != 0 {
		t.Error("校验失败的包不应被确认")
	}
	if stats := recv.Stats(); stats.ChecksumDrops != 1 {
		t.Errorf("校验丢弃计数不正确: got %d, want 1", stats.ChecksumDrops)
	}
}

func TestReceiverMalformedInput(t *testing.T) {
	recv, conn, _ := newTestReceiver(nil)

	// 畸形输入静默丢弃，绝不崩溃
	recv.handle(nil, "peer")
	recv.handle([]byte{0x01}, "peer")
	recv.handle([]byte{0, 0, 0, 0, 0, 0, 0xDE, 0xAD, 1, 2, 3}, "peer")
	// 发到接收端的确认包同样被忽略
	recv.handle(packet.EncodeAck(5), "peer")

	if stats := recv.Stats(); stats.Delivered != 0 {
		t.Errorf("畸形输入不应产生交付: got %d", stats.Delivered)
	}
	if len(conn.acks["peer"]) != 0 {
		t.Errorf("畸形输入不应产生确认: got %v", conn.acks["peer"])
	}
}

// scriptedLoss 按序列号脚本化丢包 (每个序列号只丢第一次)
type scriptedLoss struct {
	drop map[uint32]bool
}

func (s *scriptedLoss) Drop(seq uint32) bool {
	if s.drop[seq] {
		s.drop[seq] = false
		return true
	}
	return false
}

func TestReceiverSimulatedLoss(t *testing.T) {
	recv, conn, outputs := newTestReceiver(&scriptedLoss{drop: map[uint32]bool{1: true}})

	recv.handle(packet.EncodeData(0, []byte("a")), "peer")
	recv.handle(packet.EncodeData(1, []byte("b")), "peer") // 被模拟丢弃
	recv.handle(packet.EncodeData(2, []byte("c")), "peer") // 乱序被拒

	if got := outputs["peer"].String(); got != "a" {
		t.Errorf("丢弃后交付不正确: got %q", got)
	}
	stats := recv.Stats()
	if stats.SimulatedDrops != 1 {
		t.Errorf("模拟丢弃计数不正确: got %d, want 1", stats.SimulatedDrops)
	}
	if stats.OutOfOrder != 1 {
		t.Errorf("乱序计数不正确: got %d, want 1", stats.OutOfOrder)
	}

	// 重传到达后按序补齐
	recv.handle(packet.EncodeData(1, []byte("b")), "peer")
	recv.handle(packet.EncodeData(2, []byte("c")), "peer")

	if got := outputs["peer"].String(); got != "abc" {
		t.Errorf("重传后交付不正确: got %q", got)
	}
	if want := []uint32{0, 1, 2}; len(conn.acks["peer"]) != 3 ||
		conn.acks["peer"][2] != want[2] {
		t.Errorf("确认序列不正确: got %v, want %v", conn.acks["peer"], want)
	}
}

func TestReceiverSessionIsolation(t *testing.T) {
	recv, conn, outputs := newTestReceiver(nil)

	// 两个发送方并存: 游标和输出互不干扰
	recv.handle(packet.EncodeData(0, []byte("A0")), "alice")
	recv.handle(packet.EncodeData(0, []byte("B0")), "bob")
	recv.handle(packet.EncodeData(1, []byte("A1")), "alice")

	if got := outputs["alice"].String(); got != "A0A1" {
		t.Errorf("alice 会话输出不正确: got %q", got)
	}
	if got := outputs["bob"].String(); got != "B0" {
		t.Errorf("bob 会话输出不正确: got %q", got)
	}
	if len(conn.acks["alice"]) != 2 || len(conn.acks["bob"]) != 1 {
		t.Errorf("分会话确认数不正确: alice=%v bob=%v", conn.acks["alice"], conn.acks["bob"])
	}
}

func TestReceiverResetSessions(t *testing.T) {
	recv, conn, outputs := newTestReceiver(nil)

	recv.handle(packet.EncodeData(0, []byte("old")), "peer")
	recv.ResetSessions()

	// 重置后新传输从零号干净起步
	recv.handle(packet.EncodeData(0, []byte("new")), "peer")

	if got := outputs["peer"].String(); got != "new" {
		t.Errorf("重置后新会话输出不正确: got %q", got)
	}
	if stats := recv.Stats(); stats.SessionResets != 1 {
		t.Errorf("重置计数不正确: got %d, want 1", stats.SessionResets)
	}
	// 两次传输各确认一次 0 号
	if want := []uint32{0, 0}; len(conn.acks["peer"]) != 2 ||
		conn.acks["peer"][1] != want[1] {
		t.Errorf("重置前后确认不正确: got %v", conn.acks["peer"])
	}
}
