// =============================================================================
// 文件: internal/config/config.go
// 描述: 配置管理 - 发送端/接收端参数加载与校验
// =============================================================================
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fclin1/CSC573/internal/packet"
)

// Config 主配置
type Config struct {
	Sender   SenderConfig   `yaml:"sender"`
	Receiver ReceiverConfig `yaml:"receiver"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SenderConfig 发送端配置
type SenderConfig struct {
	Server     string `yaml:"server"`      // 对端主机
	Port       int    `yaml:"port"`        // 对端端口
	File       string `yaml:"file"`        // 输入文件
	WindowSize int    `yaml:"window_size"` // 窗口大小 N
	MSS        int    `yaml:"mss"`         // 最大段大小 (字节)
	TimeoutMs  int    `yaml:"timeout_ms"`  // 固定重传超时 (毫秒)
	MaxRetries int    `yaml:"max_retries"` // 连续超时上限, 0 = 不限
}

// ReceiverConfig 接收端配置
type ReceiverConfig struct {
	Listen        string  `yaml:"listen"`          // 监听地址
	Output        string  `yaml:"output"`          // 输出文件
	Loss          float64 `yaml:"loss"`            // 丢包概率 p ∈ [0, 1)
	IdleTimeoutMs int     `yaml:"idle_timeout_ms"` // 空闲重置间隔 (毫秒)
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Listen     string `yaml:"listen"`
	Path       string `yaml:"path"`
	HealthPath string `yaml:"health_path"`
}

// Load 加载配置文件，文件中的值覆盖默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Sender: SenderConfig{
			Port:       7735,
			WindowSize: 8,
			MSS:        1400,
			TimeoutMs:  500,
			MaxRetries: 10,
		},
		Receiver: ReceiverConfig{
			Listen:        ":7735",
			Output:        "received.out",
			Loss:          0,
			IdleTimeoutMs: 5000,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			Listen:     ":9100",
			Path:       "/metrics",
			HealthPath: "/health",
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Sender.WindowSize < 1 {
		return fmt.Errorf("sender.window_size 需不小于 1")
	}
	if c.Sender.MSS < 1 || c.Sender.MSS > packet.MaxPayloadSize {
		return fmt.Errorf("sender.mss 需在 1-%d 之间", packet.MaxPayloadSize)
	}
	if c.Sender.TimeoutMs < 1 {
		return fmt.Errorf("sender.timeout_ms 需为正数")
	}
	if c.Sender.MaxRetries < 0 {
		return fmt.Errorf("sender.max_retries 不能为负数")
	}
	if c.Sender.Port != 0 {
		if c.Sender.Port < 1 || c.Sender.Port > 65535 {
			return fmt.Errorf("无效的 sender.port: %d", c.Sender.Port)
		}
	}

	if c.Receiver.Loss < 0 || c.Receiver.Loss >= 1 {
		return fmt.Errorf("receiver.loss 需在 [0, 1) 之间")
	}
	if c.Receiver.IdleTimeoutMs < 0 {
		return fmt.Errorf("receiver.idle_timeout_ms 不能为负数")
	}
	if _, err := parsePort(c.Receiver.Listen); err != nil {
		return fmt.Errorf("receiver.listen 端口格式错误: %w", err)
	}

	if c.Metrics.Enabled {
		metricsPort, err := parsePort(c.Metrics.Listen)
		if err != nil {
			return fmt.Errorf("metrics.listen 端口格式错误: %w", err)
		}
		listenPort, _ := parsePort(c.Receiver.Listen)
		if metricsPort == listenPort {
			return fmt.Errorf("metrics.listen 端口 (%d) 与 receiver.listen 冲突", metricsPort)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path 必须以 / 开头")
		}
	}

	return nil
}

// parsePort 解析端口号
func parsePort(addr string) (int, error) {
	if strings.HasPrefix(addr, ":") {
		return strconv.Atoi(addr[1:])
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return strconv.Atoi(addr)
	}
	return strconv.Atoi(portStr)
}

// PeerAddr 发送端的对端地址
func (c *SenderConfig) PeerAddr() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}
