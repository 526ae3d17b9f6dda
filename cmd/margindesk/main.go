package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"margin-desk-go/config"
	"margin-desk-go/gateway"
	"margin-desk-go/infrastructure/logger"
	"margin-desk-go/metrics"
	"margin-desk-go/session"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件；留空用配置")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	lg, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	addr := cfg.Metrics.ListenAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	metrics.Serve(addr)
	stats := metrics.NewCollector(prometheus.DefaultRegisterer)

	client := gateway.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout())

	s := session.New(client)
	s.SetLogger(lg)
	s.SetMetrics(stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置热更新：只应用请求超时，基础地址和已加载目录不热切换
	go watchConfig(ctx, *cfgPath, client, lg)

	if err := s.Start(ctx, client); err != nil {
		// 目录不可用是终态：打印阻断信息后退出，只有重启能恢复
		fmt.Fprintf(os.Stderr, "无法加载资产目录，交易功能不可用：%v\n", err)
		os.Exit(1)
	}

	s.SetOutcomeListener(func(o session.Outcome) {
		if o.Status == session.StatusOK {
			fmt.Printf("[%s] 校验通过，所需保证金 %.2f\n", shortID(o.SubmissionID), o.MarginRequired)
		} else {
			fmt.Printf("[%s] 校验失败：%s（margin_required=%.2f）\n", shortID(o.SubmissionID), o.Message, o.MarginRequired)
		}
		fmt.Print("> ")
	})

	printAssets(s)
	printDraft(s)

	go repl(ctx, s, cancel)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	lg.Info("margindesk_exit")
}

func watchConfig(ctx context.Context, path string, client *gateway.Client, lg *logger.Logger) {
	w := config.Watcher{Path: path}
	_ = w.Start(ctx, func(cfg config.AppConfig) {
		client.SetTimeout(cfg.Backend.Timeout())
		lg.Info("config_reloaded")
	})
}

func repl(ctx context.Context, s *session.Session, cancel context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}
		fields := strings.Fields(line)
		if err := handle(ctx, s, fields, cancel); err != nil {
			fmt.Printf("错误：%v\n", err)
		}
		fmt.Print("> ")
	}
	cancel()
}

func handle(ctx context.Context, s *session.Session, fields []string, cancel context.CancelFunc) error {
	switch fields[0] {
	case "assets":
		printAssets(s)
	case "asset":
		if len(fields) < 2 {
			return fmt.Errorf("用法：asset <symbol>")
		}
		if err := s.SelectAsset(fields[1]); err != nil {
			return err
		}
		printDraft(s)
	case "side":
		if len(fields) < 2 {
			return fmt.Errorf("用法：side <long|short>")
		}
		if err := s.SetSide(session.Side(fields[1])); err != nil {
			return err
		}
		printDraft(s)
	case "size":
		if len(fields) < 2 {
			return fmt.Errorf("用法：size <张数>")
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("无法解析张数 %q", fields[1])
		}
		if err := s.SetSize(v); err != nil {
			return err
		}
		printDraft(s)
	case "lev":
		if len(fields) < 2 {
			return fmt.Errorf("用法：lev <杠杆>")
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("无法解析杠杆 %q", fields[1])
		}
		if err := s.SetLeverage(v); err != nil {
			return err
		}
		printDraft(s)
	case "show":
		printDraft(s)
		if out, ok := s.Outcome(); ok {
			fmt.Printf("最近结果：status=%s message=%q margin_required=%.2f\n",
				out.Status, out.Message, out.MarginRequired)
		}
	case "submit":
		id, err := s.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("[%s] 已提交，等待后端确认……\n", shortID(id))
	case "quit", "exit":
		cancel()
	default:
		fmt.Println("命令：assets | asset <sym> | side <long|short> | size <n> | lev <n> | show | submit | quit")
	}
	return nil
}

func printAssets(s *session.Session) {
	cat := s.Catalog()
	if cat == nil {
		return
	}
	fmt.Println("可交易资产：")
	for _, a := range cat.Assets() {
		fmt.Printf("  %-8s mark=%.2f contract=%.4f leverage=%v\n",
			a.Symbol, a.MarkPrice, a.ContractValue, a.AllowedLeverage)
	}
}

func printDraft(s *session.Session) {
	d := s.Draft()
	if d.Asset == nil {
		return
	}
	fmt.Printf("%s %s size=%.4f lev=%dx ⇒ 预估保证金 %.2f\n",
		d.Asset.Symbol, d.Side, d.Size, d.Leverage, s.Estimate())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
