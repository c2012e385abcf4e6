// cmd/sftp-server/main.go
// Simple-FTP 接收端入口
// 监听 UDP、重建字节流、可选 Prometheus 监控

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fclin1/CSC573/internal/config"
	"github.com/fclin1/CSC573/internal/gbn"
	"github.com/fclin1/CSC573/internal/metrics"
)

var (
	Version = "1.0.0"
)

func main() {
	cfg := parseFlags()

	printBanner(cfg)

	if err := run(cfg); err != nil && err != context.Canceled {
		fmt.Printf("[ERROR] 运行失败: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags 解析命令行参数，命令行覆盖配置文件
func parseFlags() *config.Config {
	cfg := config.DefaultConfig()

	listen := flag.String("listen", "", "监听地址 (如 :7735)")
	output := flag.String("output", "", "输出文件")
	loss := flag.Float64("loss", -1, "丢包概率 p ∈ [0, 1)")
	idle := flag.Int("idle", 0, "空闲重置间隔 (毫秒)")
	metricsOn := flag.Bool("metrics", false, "启用 Prometheus 监控")
	metricsListen := flag.String("metrics-listen", "", "监控监听地址")
	configFile := flag.String("config", "", "配置文件路径 (YAML)")
	showVersion := flag.Bool("version", false, "显示版本")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Simple-FTP Server v%s\n", Version)
		os.Exit(0)
	}

	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Printf("[ERROR] 加载配置文件失败: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if *listen != "" {
		cfg.Receiver.Listen = *listen
	}
	if *output != "" {
		cfg.Receiver.Output = *output
	}
	if *loss >= 0 {
		cfg.Receiver.Loss = *loss
	}
	if *idle != 0 {
		cfg.Receiver.IdleTimeoutMs = *idle
	}
	if *metricsOn {
		cfg.Metrics.Enabled = true
	}
	if *metricsListen != "" {
		cfg.Metrics.Listen = *metricsListen
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("[ERROR] 配置无效: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	return cfg
}

// printBanner 打印横幅
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║       Simple-FTP Go-Back-N Receiver           ║")
	fmt.Println("╠═══════════════════════════════════════════════╣")
	fmt.Printf("║  监听: %-38s ║\n", cfg.Receiver.Listen)
	fmt.Printf("║  输出: %-38s ║\n", cfg.Receiver.Output)
	fmt.Printf("║  丢包概率: %-34.3f ║\n", cfg.Receiver.Loss)
	fmt.Println("╚═══════════════════════════════════════════════╝")
	fmt.Println()
}

func run(cfg *config.Config) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := gbn.ListenUDP(cfg.Receiver.Listen)
	if err != nil {
		return err
	}
	fmt.Printf("[INFO] 正在监听 %s\n", conn.LocalAddr())

	recv := gbn.NewReceiver(conn, outputSink(cfg.Receiver.Output), &gbn.ReceiverConfig{
		Loss:        gbn.NewBernoulliLoss(cfg.Receiver.Loss, time.Now().UnixNano()),
		IdleTimeout: time.Duration(cfg.Receiver.IdleTimeoutMs) * time.Millisecond,
	})

	g, ctx := errgroup.WithContext(rootCtx)

	// 数据报接收循环
	g.Go(func() error {
		return recv.Run(ctx)
	})

	// 取消时关闭 socket 以解除接收阻塞
	g.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return nil
	})

	// Prometheus 监控
	if cfg.Metrics.Enabled {
		msrv := metrics.NewMetricsServer(cfg.Metrics.Listen, cfg.Metrics.Path, cfg.Metrics.HealthPath)
		msrv.MustRegisterCollector(metrics.NewReceiverCollector(recv))

		start := time.Now()
		msrv.SetHealthCheck(func() metrics.HealthStatus {
			return metrics.HealthStatus{
				Status:    "healthy",
				Timestamp: time.Now(),
				Uptime:    time.Since(start),
			}
		})

		g.Go(msrv.Start)
		g.Go(func() error {
			<-ctx.Done()
			msrv.Stop()
			return nil
		})
		fmt.Printf("[INFO] 监控就绪: %s%s\n", cfg.Metrics.Listen, cfg.Metrics.Path)
	}

	fmt.Println("[INFO] 按 Ctrl+C 退出")

	err = g.Wait()

	stats := recv.Stats()
	fmt.Printf("[INFO] 已停止 | 交付: %d 段 / %d 字节 | 模拟丢弃: %d | 校验丢弃: %d\n",
		stats.Delivered, stats.BytesDelivered, stats.SimulatedDrops, stats.ChecksumDrops)

	return err
}

// outputSink 为每个发送方会话打开输出文件
//
// 首个会话使用配置的输出路径；并发的其他发送方各得一个带来源
// 后缀的文件，会话之间互不共享输出。
func outputSink(path string) gbn.SinkFunc {
	first := true
	return func(from string) (io.Writer, error) {
		name := path
		if !first {
			name = fmt.Sprintf("%s.%s", path, strings.ReplaceAll(from, ":", "_"))
		}
		first = false

		f, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[INFO] 新会话 %s → %s\n", from, name)
		return f, nil
	}
}
