// =============================================================================
// 文件: internal/gbn/transport.go
// 描述: Go-Back-N 可靠传输 - 传输原语抽象与 UDP 适配
// =============================================================================
package gbn

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// 错误定义
var (
	ErrConnClosed = fmt.Errorf("连接已关闭")
	ErrMaxRetries = fmt.Errorf("超过最大重试次数")
)

// Conn 发送端传输原语 (已连接的点对点通道)
//
// Recv 的 deadline 到期以 os.ErrDeadlineExceeded 报告，
// 属于定时器调度而非错误；其余错误视为致命传输故障。
type Conn interface {
	Send(p []byte) error
	Recv(buf []byte, deadline time.Time) (int, error)
	Close() error
}

// PacketConn 接收端传输原语 (多发送方，按来源地址区分会话)
type PacketConn interface {
	RecvFrom(buf []byte, deadline time.Time) (n int, from string, err error)
	SendTo(p []byte, to string) error
	Close() error
}

// IsTimeout 判断是否为截止时间到期
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// =============================================================================
// UDP 适配
// =============================================================================

// UDPConn 已连接 UDP socket 上的发送端通道
type UDPConn struct {
	conn *net.UDPConn
}

// DialUDP 连接对端
func DialUDP(addr string) (*UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("解析对端地址失败: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	return &UDPConn{conn: conn}, nil
}

// Send 发送一个数据报
func (c *UDPConn) Send(p []byte) error {
	_, err := c.conn.Write(p)
	return err
}

// Recv 带截止时间的阻塞接收；deadline 为零值时无限等待
func (c *UDPConn) Recv(buf []byte, deadline time.Time) (int, error) {
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	return c.conn.Read(buf)
}

// Close 关闭 socket
func (c *UDPConn) Close() error {
	return c.conn.Close()
}

// UDPPacketConn 监听 UDP socket 上的接收端通道
type UDPPacketConn struct {
	conn *net.UDPConn

	// 来源地址缓存，SendTo 按字符串键回写
	peers map[string]*net.UDPAddr
	mu    sync.Mutex
}

// ListenUDP 在本地地址监听
func ListenUDP(addr string) (*UDPPacketConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("解析监听地址失败: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}
	return &UDPPacketConn{
		conn:  conn,
		peers: make(map[string]*net.UDPAddr),
	}, nil
}

// RecvFrom 带截止时间的阻塞接收，返回来源标识
func (c *UDPPacketConn) RecvFrom(buf []byte, deadline time.Time) (int, string, error) {
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return 0, "", err
	}

	n, addr, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		return 0, "", err
	}

	key := addr.String()
	c.mu.Lock()
	c.peers[key] = addr
	c.mu.Unlock()

	return n, key, nil
}

// SendTo 向指定来源回写 (通常是确认包)
func (c *UDPPacketConn) SendTo(p []byte, to string) error {
	c.mu.Lock()
	addr, ok := c.peers[to]
	c.mu.Unlock()

	if !ok {
		resolved, err := net.ResolveUDPAddr("udp", to)
		if err != nil {
			return fmt.Errorf("未知来源地址 %s: %w", to, err)
		}
		addr = resolved
	}

	_, err := c.conn.WriteToUDP(p, addr)
	return err
}

// Close 关闭 socket
func (c *UDPPacketConn) Close() error {
	return c.conn.Close()
}

// LocalAddr 实际监听地址 (端口 0 时用于回读)
func (c *UDPPacketConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}
