package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"levtrade/internal/auth"
	"levtrade/internal/config"
	"levtrade/internal/db"
	"levtrade/internal/events"
	"levtrade/internal/fees"
	"levtrade/internal/health"
	"levtrade/internal/httpserver"
	"levtrade/internal/ledger"
	"levtrade/internal/liquidation"
	"levtrade/internal/logging"
	"levtrade/internal/marketdata"
	"levtrade/internal/positions"
	"levtrade/internal/transfers"
	"levtrade/internal/users"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(logging.Options{Mode: cfg.Mode, File: cfg.LogFile})
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	bus := events.NewBus()
	publishers := events.Fanout{bus}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer nc.Drain()
		publishers = append(publishers, events.NewNATSPublisher(nc, cfg.NATSSubjectPrefix))
	}

	schedule, err := fees.NewSchedule(cfg.FeeTiers)
	if err != nil {
		return err
	}
	prices := marketdata.NewPrices()
	source := marketdata.NewRedisSource(rdb, cfg.QuotesCryptoKey, cfg.QuotesStocksKey)
	refresher := marketdata.NewRefresher(source, prices, logger)
	clock := marketdata.Clock{Hours: cfg.MarketHours}

	tx := db.NewTxRunner(pool)
	ledgerSvc := ledger.NewService(pool, logger)
	positionStore := positions.NewStore(pool)
	transferStore := transfers.NewStore(pool)

	userSvc := users.NewService(tx, users.NewStore(pool), ledgerSvc, transferStore, logger)
	positionSvc := positions.NewService(tx, ledgerSvc, positionStore, schedule, prices, clock, publishers, positions.Config{
		MaxLive:     cfg.MaxLivePositions,
		Restricted:  cfg.RestrictedAssets,
		WinningsFee: cfg.WinningsFee,
		FeeWindow:   cfg.FeeWindow,
	}, logger)
	transferSvc := transfers.NewService(tx, transferStore, ledgerSvc, transfers.Config{
		BridgeCost:        cfg.BridgeCost,
		ApprovalThreshold: cfg.WithdrawApprovalThreshold,
	}, logger)
	scanner, err := liquidation.NewScanner(positionStore, prices, publishers, cfg.LiquidationWorkers, logger)
	if err != nil {
		return err
	}
	defer scanner.Close()
	tokens := auth.NewService(cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	limiter := httpserver.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		HealthHandler:      health.NewHandler(time.Now(), map[string]health.Pinger{"database": pool, "redis": source}),
		UsersHandler:       users.NewHandler(userSvc),
		PositionsHandler:   positions.NewHandler(positionSvc, userSvc),
		MarketHandler:      marketdata.NewHandler(prices, clock),
		LiquidationHandler: liquidation.NewHandler(scanner),
		TransfersHandler:   transfers.NewHandler(transferSvc),
		AuthHandler:        auth.NewHandler(tokens, userSvc),
		WSHandler:          httpserver.NewWSHandler(bus, tokens, cfg.WebSocketOrigin, logger),
		RateLimiter:        limiter,
		InternalToken:      cfg.InternalToken,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	loops := []func(){
		func() { refresher.Run(ctx, cfg.QuoteRefreshEvery) },
		func() { scanner.Run(ctx, cfg.LiquidationEvery) },
		func() { limiter.Run(ctx) },
	}
	for _, loop := range loops {
		loop := loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop()
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.HTTPAddr), zap.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		wg.Wait()
		return err
	}

	logger.Info("shutting down")
	wg.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
