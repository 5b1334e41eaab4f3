package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/exchange"
	"smc-sweep-trader/internal/journal"
	"smc-sweep-trader/internal/notify"
	"smc-sweep-trader/internal/scan"
	"smc-sweep-trader/internal/service"
)

func main() {
	configPath := flag.String("config", "./config", "配置文件目录")
	flag.Parse()

	service.InitLogger()
	defer service.Logger.Sync()
	logger := service.Logger

	cfg := service.LoadConfig(*configPath)
	logger.Info("Configuration loaded",
		zap.String("exchange", cfg.Exchange.Name),
		zap.Strings("symbols", cfg.Symbols))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := exchange.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create exchange gateway", zap.Error(err))
	}

	// 模拟盘等需要后台行情流的网关在这里启动
	if starter, ok := gateway.(interface{ Start(ctx context.Context) }); ok {
		go starter.Start(ctx)
	}

	csvJournal, err := journal.NewCSVJournal(cfg.Journal.CSVPath, logger)
	if err != nil {
		logger.Fatal("Failed to open trade journal", zap.Error(err))
	}

	var store scan.MetricsStore
	if cfg.Journal.PostgresDSN != "" {
		pg, err := journal.NewStore(cfg.Journal.PostgresDSN, logger)
		if err != nil {
			logger.Fatal("Failed to connect journal store", zap.Error(err))
		}
		defer pg.Close()
		store = pg
	}

	var notifier scan.Notifier
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Fatal("Failed to init telegram notifier", zap.Error(err))
		}
		notifier = tg
	}

	loop := scan.NewScanLoop(cfg, gateway, csvJournal, store, notifier, logger)
	loop.Run(ctx)

	logger.Info("Shutdown complete")
}
