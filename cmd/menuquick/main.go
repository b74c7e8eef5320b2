package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"menuquick/internal/app"
	"menuquick/internal/config"
	"menuquick/internal/domain"
	"menuquick/internal/logger"
	"menuquick/internal/metrics"
	"menuquick/internal/notify"
	"menuquick/internal/store"
	"menuquick/internal/suggest"
	"menuquick/internal/watch"
)

func main() {
	mode := flag.String("mode", "", "customer | kitchen | waiter")
	cfgPath := flag.String("config", "", "path to YAML config (default: auto-detect)")
	flag.Parse()

	if *mode != "customer" && *mode != "kitchen" && *mode != "waiter" {
		fmt.Fprintln(os.Stderr, "--mode is required: customer | kitchen | waiter")
		os.Exit(2)
	}

	_ = godotenv.Load()

	lg := logger.New(*mode)
	defer lg.Sync()

	path := *cfgPath
	if path == "" {
		var err error
		if path, err = config.FindConfig(); err != nil {
			lg.Fatal("config_not_found", zap.Error(err))
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		lg.Fatal("config_load_failed", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kv, err := openKV(ctx, cfg)
	if err != nil {
		lg.Fatal("store_open_failed", zap.Error(err))
	}
	defer kv.Close()

	mx := metrics.NewRegistry()
	st := store.NewOrderStore(kv, lg, mx)

	sink := watch.Fanout{watch.NewLogNotifier(lg)}
	if cfg.Rabbit.Enabled {
		mq, err := notify.Dial(cfg.Rabbit.Host, cfg.Rabbit.Port, cfg.Rabbit.User, cfg.Rabbit.Pass)
		if err != nil {
			lg.Fatal("rabbitmq_connect_failed", zap.Error(err))
		}
		defer mq.Close()
		if err := mq.DeclareAll(); err != nil {
			lg.Fatal("rabbitmq_declare_failed", zap.Error(err))
		}
		sink = append(sink, notify.NewAMQPNotifier(mq, lg))
		lg.Info("rabbitmq_connected", zap.String("host", cfg.Rabbit.Host))
	}

	lg.Info("service_started", zap.String("mode", *mode))
	switch *mode {
	case "customer":
		menu, err := domain.LoadMenu(cfg.MenuPath)
		if err != nil {
			lg.Fatal("menu_load_failed", zap.Error(err))
		}
		gateway := suggest.NewGateway(cfg.Suggest.GatewayURL, cfg.Suggest.APIKey, lg)
		err = app.NewCustomer(cfg, st, menu, gateway, sink, lg, mx).Run(ctx)
		exitOn(lg, err)
	case "kitchen":
		exitOn(lg, app.NewKitchen(cfg, st, sink, lg, mx).Run(ctx))
	case "waiter":
		exitOn(lg, app.NewWaiter(cfg, st, sink, lg, mx).Run(ctx))
	}
}

func openKV(ctx context.Context, cfg config.App) (store.KV, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryKV(), nil
	case "pebble":
		return store.OpenPebble(cfg.Store.Path)
	case "postgres":
		return store.ConnectPostgres(ctx, cfg.Store.Database.DSN())
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func exitOn(lg *zap.Logger, err error) {
	if err != nil {
		lg.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}
