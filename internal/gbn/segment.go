// =============================================================================
// 文件: internal/gbn/segment.go
// 描述: Go-Back-N 可靠传输 - 输入分段
// =============================================================================
package gbn

// Split 把输入字节流按 MSS 切分为段
//
// 段在传输开始时一次性生成且不可变，序列号即切片下标。
// 最后一段允许短于 MSS；空输入产生零个段。
func Split(data []byte, mss int) [][]byte {
	if mss <= 0 || len(data) == 0 {
		return nil
	}

	segments := make([][]byte, 0, (len(data)+mss-1)/mss)
	for off := 0; off < len(data); off += mss {
		end := off + mss
		if end > len(data) {
			end = len(data)
		}
		segments = append(segments, data[off:end])
	}
	return segments
}
