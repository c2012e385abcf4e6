// cmd/sftp-client/main.go
// Simple-FTP 发送端入口
// 读取输入文件、按 MSS 分段、执行 Go-Back-N 传输

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

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

	if err := run(cfg); err != nil {
		fmt.Printf("[ERROR] 传输失败: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags 解析命令行参数，命令行覆盖配置文件
func parseFlags() *config.Config {
	cfg := config.DefaultConfig()

	server := flag.String("server", "", "接收端主机")
	port := flag.Int("port", 0, "接收端端口")
	file := flag.String("file", "", "输入文件")
	window := flag.Int("window", 0, "窗口大小 N")
	mss := flag.Int("mss", 0, "最大段大小 (字节)")
	timeout := flag.Int("timeout", 0, "重传超时 (毫秒)")
	maxRetries := flag.Int("max-retries", -1, "连续超时上限, 0 = 不限")
	enableMetrics := flag.Bool("metrics", false, "开启指标服务")
	metricsListen := flag.String("metrics-listen", "", "指标服务监听地址")
	configFile := flag.String("config", "", "配置文件路径 (YAML)")
	showVersion := flag.Bool("version", false, "显示版本")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Simple-FTP Client v%s\n", Version)
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

	if *server != "" {
		cfg.Sender.Server = *server
	}
	if *port != 0 {
		cfg.Sender.Port = *port
	}
	if *file != "" {
		cfg.Sender.File = *file
	}
	if *window != 0 {
		cfg.Sender.WindowSize = *window
	}
	if *mss != 0 {
		cfg.Sender.MSS = *mss
	}
	if *timeout != 0 {
		cfg.Sender.TimeoutMs = *timeout
	}
	if *maxRetries >= 0 {
		cfg.Sender.MaxRetries = *maxRetries
	}
	if *enableMetrics {
		cfg.Metrics.Enabled = true
	}
	if *metricsListen != "" {
		cfg.Metrics.Listen = *metricsListen
	}

	if cfg.Sender.Server == "" {
		fmt.Println("[ERROR] 必须指定接收端主机 (-server 或配置文件中的 server)")
		flag.Usage()
		os.Exit(1)
	}
	if cfg.Sender.File == "" {
		fmt.Println("[ERROR] 必须指定输入文件 (-file 或配置文件中的 file)")
		flag.Usage()
		os.Exit(1)
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
	fmt.Println("║        Simple-FTP Go-Back-N Sender            ║")
	fmt.Println("╠═══════════════════════════════════════════════╣")
	fmt.Printf("║  对端: %-38s ║\n", cfg.Sender.PeerAddr())
	fmt.Printf("║  文件: %-38s ║\n", cfg.Sender.File)
	fmt.Printf("║  窗口: N = %-5d      MSS = %-6d 字节      ║\n", cfg.Sender.WindowSize, cfg.Sender.MSS)
	fmt.Println("╚═══════════════════════════════════════════════╝")
	fmt.Println()
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(cfg.Sender.File)
	if err != nil {
		return fmt.Errorf("读取输入文件失败: %w", err)
	}

	segments := gbn.Split(data, cfg.Sender.MSS)
	fmt.Printf("[INFO] 已加载 '%s': %d 字节, %d 个段\n", cfg.Sender.File, len(data), len(segments))

	conn, err := gbn.DialUDP(cfg.Sender.PeerAddr())
	if err != nil {
		return err
	}
	defer conn.Close()

	sender := gbn.NewSender(conn, segments, &gbn.SenderConfig{
		WindowSize: cfg.Sender.WindowSize,
		Timeout:    time.Duration(cfg.Sender.TimeoutMs) * time.Millisecond,
		MaxRetries: cfg.Sender.MaxRetries,
	})

	// 传输期间按需暴露窗口指标
	if cfg.Metrics.Enabled {
		srv := metrics.NewMetricsServer(cfg.Metrics.Listen, cfg.Metrics.Path, cfg.Metrics.HealthPath)
		gauges := metrics.NewSenderGauges(srv.GetRegistry())

		go func() {
			if err := srv.Start(); err != nil {
				fmt.Printf("[WARN] 指标服务异常: %v\n", err)
			}
		}()
		defer srv.Stop()

		observeDone := make(chan struct{})
		defer close(observeDone)
		go func() {
			ticker := time.NewTicker(250 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					gauges.Observe(sender.Window())
				case <-observeDone:
					gauges.Observe(sender.Window())
					return
				}
			}
		}()

		fmt.Printf("[INFO] 指标服务已启动: http://%s%s\n", cfg.Metrics.Listen, cfg.Metrics.Path)
	}

	stats, err := sender.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nDone! Time: %.3fs, Retransmissions: %d\n",
		stats.Elapsed.Seconds(), stats.Retransmits)
	fmt.Printf("[INFO] 共 %d 段 / %d 字节, 发包 %d (超时 %d 次)\n",
		stats.Segments, stats.Bytes, stats.PacketsSent, stats.Timeouts)

	return nil
}
