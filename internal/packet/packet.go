// =============================================================================
// 文件: internal/packet/packet.go
// 描述: Simple-FTP 包编解码 - 固定头部 + RFC 1071 校验和
// =============================================================================
package packet

import (
	"encoding/binary"
	"fmt"
)

// 协议常量
const (
	// 头部大小: Seq(4) + Checksum(2) + Flags(2) = 8 bytes
	HeaderSize = 8

	// 标志位 (2 bytes)
	FlagData uint16 = 0x5555 // 数据包 0101010101010101
	FlagAck  uint16 = 0xAAAA // 确认包 1010101010101010

	// UDP 数据报上限决定的最大载荷
	MaxPayloadSize = 65507 - HeaderSize
)

// 错误定义
var (
	ErrTooShort    = fmt.Errorf("数据太短: 不足 %d 字节头部", HeaderSize)
	ErrUnknownFlag = fmt.Errorf("未知标志位")
)

// Packet 线路包 (数据包或确认包)
//
// 数据包: [seq:4] [checksum:2] [flags:2 = 0x5555] [payload ≤ MSS]
// 确认包: [seq:4] [zeros:2]    [flags:2 = 0xAAAA]
type Packet struct {
	Seq      uint32 // 序列号
	Checksum uint16 // RFC 1071 校验和 (仅覆盖载荷; 确认包恒为 0)
	Flags    uint16 // 包类型标志
	Payload  []byte // 有效载荷 (确认包为空)
}

// Checksum 计算 RFC 1071 互联网校验和 (16 位反码和的反码)
func Checksum(data []byte) uint16 {
	var sum uint32

	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	// 奇数长度补零字节
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}

	// 折叠进位
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}

	return ^uint16(sum)
}

// EncodeData 编码数据包
func EncodeData(seq uint32, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], seq)
	binary.BigEndian.PutUint16(buf[4:6], Checksum(payload))
	binary.BigEndian.PutUint16(buf[6:8], FlagData)
	copy(buf[HeaderSize:], payload)
	return buf
}

// EncodeAck 编码确认包
func EncodeAck(seq uint32) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], seq)
	binary.BigEndian.PutUint16(buf[6:8], FlagAck)
	return buf
}

// Decode 解码线路包
//
// 头部不完整或标志位无法识别时返回成帧错误，由调用方静默丢弃。
func Decode(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, ErrTooShort
	}

	p := &Packet{
		Seq:      binary.BigEndian.Uint32(data[0:4]),
		Checksum: binary.BigEndian.Uint16(data[4:6]),
		Flags:    binary.BigEndian.Uint16(data[6:8]),
	}

	switch p.Flags {
	case FlagData:
		if len(data) > HeaderSize {
			p.Payload = make([]byte, len(data)-HeaderSize)
			copy(p.Payload, data[HeaderSize:])
		}
	case FlagAck:
		// 确认包不携带载荷
	default:
		return nil, ErrUnknownFlag
	}

	return p, nil
}

// IsData 是否为数据包
func (p *Packet) IsData() bool {
	return p.Flags == FlagData
}

// IsAck 是否为确认包
func (p *Packet) IsAck() bool {
	return p.Flags == FlagAck
}

// VerifyChecksum 重算载荷校验和并比对
//
// 校验失败不是错误: 接收端按模拟丢包同样处理，由发送端超时重传掩盖。
func (p *Packet) VerifyChecksum() bool {
	return p.Checksum == Checksum(p.Payload)
}
