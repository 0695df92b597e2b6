// sysguard 资源监控与安全修复守护进程。
//
// 用法：
//
//	sysguard [-config FILE] daemon     后台监控，落盘事件日志和历史记录
//	sysguard [-config FILE] dashboard  交互式终端面板
//	sysguard help                      显示帮助
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dreamsxin/sysguard/config"
	"github.com/dreamsxin/sysguard/monitor"
	"github.com/dreamsxin/sysguard/remedy"
	"github.com/dreamsxin/sysguard/reporter"
	"github.com/dreamsxin/sysguard/sampler"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "sysguard.conf", "配置文件路径")
	flag.Usage = usage
	flag.Parse()

	mode := flag.Arg(0)
	switch mode {
	case "daemon", "dashboard":
	case "help", "":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n\n", mode)
		usage()
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	smp := sampler.New(logger, cfg.NetworkSettle, cfg.TopProcessCount)

	// 启动探测：所有数据源都不可读时直接退出
	if _, err := smp.Sample(ctx); err != nil {
		var serr *sampler.SamplingError
		if errors.As(err, &serr) {
			logger.Error("sampler initialization failed", "error", serr)
			return 1
		}
		// 启动阶段就收到终止信号
		return 0
	}

	registry := remedy.NewRegistry(cfg.ProtectedProcesses)
	tracker := remedy.NewTracker(cfg.KillCooldown)
	controller := remedy.NewController(cfg, registry, tracker, logger)

	var rep monitor.Reporter
	var closers []func() error

	if mode == "daemon" {
		events, err := reporter.NewEventLog(cfg.LogFile)
		if err != nil {
			logger.Error("open event log failed", "error", err)
			return 1
		}
		closers = append(closers, events.Close)

		history, err := reporter.NewHistory(cfg.HistoryFile)
		if err != nil {
			logger.Error("open history file failed", "error", err)
			return 1
		}
		closers = append(closers, history.Close)

		events.Write(reporter.LevelInfo,
			"monitoring started: interval=%s auto_kill=%v protected=%d",
			cfg.Interval, cfg.AutoKillEnabled, registry.Size())
		rep = reporter.Multi{events, history}
	} else {
		rep = reporter.NewDashboard(os.Stdout, cfg)
	}

	loop := monitor.NewLoop(cfg, smp, controller, rep, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})

	logger.Info("sysguard running", "mode", mode, "interval", cfg.Interval)
	err = g.Wait()

	for _, closeFn := range closers {
		if cerr := closeFn(); cerr != nil {
			logger.Warn("close reporter failed", "error", cerr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("monitor loop failed", "error", err)
		return 1
	}
	logger.Info("sysguard stopped")
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, `sysguard - resource monitoring and safe remediation

Usage:
  sysguard [-config FILE] daemon      run headless, append events and history to disk
  sysguard [-config FILE] dashboard   interactive terminal dashboard
  sysguard help                       show this help

Config file (key=value, defaults shown):
  INTERVAL=5                  seconds between ticks
  CPU_THRESHOLD=80            alert thresholds, percent
  MEM_THRESHOLD=85
  DISK_THRESHOLD=90
  CPU_KILL_THRESHOLD=95       kill thresholds, percent
  MEM_KILL_THRESHOLD=95
  AUTO_KILL_ENABLED=false     enable automatic remediation
  PROTECTED_PROCESSES=        space-separated name fragments
  KILL_COOLDOWN=60            seconds before a pid may be targeted again
  LOG_FILE=sysguard.log
  HISTORY_FILE=sysguard_history.csv
`)
}
