package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/config"
	httpapi "github.com/PharmaUz/Uz-Pharma-Bot/internal/http"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/notify"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/seed"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/service"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/session"

	_ "github.com/PharmaUz/Uz-Pharma-Bot/docs"
)

// @title Pharma Bot Orders API
// @version 1.0
// @description Корзина, подбор аптек и оформление заказов на самовывоз.
// @BasePath /api/v1
func main() {
	configDir := pflag.String("config-dir", ".", "directory with app.env")
	seedPath := pflag.String("seed", "", "YAML file with drugs, pharmacies and stock to load on start")
	migrate := pflag.Bool("migrate", true, "apply the schema on start (postgres storage)")
	pflag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStorage(ctx, cfg, *migrate)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("cannot open storage")
	}
	defer closeStore()

	if *seedPath != "" {
		if err := loadSeed(ctx, repos, *seedPath); err != nil {
			log.Fatal().Err(err).Str("file", *seedPath).Msg("cannot load seed data")
		}
	}

	notifier, closeNotifier, err := openNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("notifier", cfg.Notifier).Msg("cannot start notifier")
	}
	defer closeNotifier()

	carts := service.NewCartService(repos.Carts, repos.Drugs)
	matcher := service.NewMatcher(repos.Pharmacies, repos.Stock, service.MatcherOptionsFromConfig(cfg))
	orders := service.NewOrderService(repos, notifier, service.OrderOptionsFromConfig(cfg))
	sessions := session.New[service.Checkout](cfg.SessionCapacity, cfg.SessionTTL)

	srv := httpapi.NewServer(httpapi.Services{
		Catalog:  service.NewCatalogService(repos.Drugs),
		Carts:    carts,
		Checkout: service.NewCheckoutService(carts, matcher, orders, sessions),
		Orders:   orders,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Str("app", cfg.AppName).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg config.Config, migrate bool) (repository.Repositories, func(), error) {
	if cfg.Storage != config.StoragePostgres {
		return repository.NewMemoryStore().Repositories(), func() {}, nil
	}
	pg, err := repository.NewPostgres(cfg)
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	if migrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return repository.Repositories{}, nil, err
		}
	}
	closeFn := func() {
		if err := pg.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}
	return pg.Repositories(), closeFn, nil
}

func openNotifier(cfg config.Config) (notify.Notifier, func(), error) {
	if cfg.Notifier != config.NotifierAMQP {
		return notify.NewLogNotifier(), func() {}, nil
	}
	n, err := notify.DialAMQP(notify.AMQPConfig{
		URL:          cfg.RabbitMQURL,
		ExchangeName: cfg.NotifyExchangeName,
		ExchangeType: cfg.NotifyExchangeType,
		RoutingKey:   cfg.NotifyRoutingKey,
	})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := n.Close(); err != nil {
			log.Error().Err(err).Msg("close amqp notifier")
		}
	}
	return n, closeFn, nil
}

func loadSeed(ctx context.Context, repos repository.Repositories, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := seed.Load(f)
	if err != nil {
		return err
	}
	return seed.Apply(ctx, repos, data)
}
