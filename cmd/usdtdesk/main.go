package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"usdtdesk/config"
	"usdtdesk/internal/desk"
	"usdtdesk/internal/domain"
	"usdtdesk/internal/exchange"
	"usdtdesk/internal/services/liquidator"
	"usdtdesk/internal/storage/orderlog"
	"usdtdesk/internal/web"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	cfg, err := config.Get(*configPath)
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	creds := config.GetCredentials()
	if creds.AccessToken == "" || creds.SecretKey == "" {
		logger.Warn("exchange credentials are not set, signed calls will be rejected")
	}

	signer := exchange.NewSigner(creds.AccessToken, creds.SecretKey)
	client := exchange.NewClient(cfg.BaseURL, domain.KRWUSDT, signer, &http.Client{Timeout: cfg.HTTPTimeout})

	store, err := orderlog.NewStore(cfg.OrderLogPath, cfg.OrderLogHistoryDir)
	if err != nil {
		logger.Fatal("failed to open order log", zap.Error(err))
	}
	defer store.Close()

	liq := liquidator.New(client, store, domain.KRWUSDT, logger)
	d := desk.New(client, liq, store, cfg.RefreshInterval, logger)
	server := web.NewServer(cfg.ListenAddr, d, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	logger.Info("started",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("market", domain.KRWUSDT.String()))

	if err := g.Wait(); err != nil {
		logger.Error(err.Error())
	}
}
