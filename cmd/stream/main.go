// Command stream subscribes to live kline updates and prints them.
//
// Symbols are taken from the command line (default btcusdt). The interval
// comes from STREAM_INTERVAL (default 1m) and an optional yaml config file
// from STREAM_CONFIG. Kline updates for non-final bars are debounced so a
// fast feed prints at most one in-progress update per quiet period.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-stream/internal/logger"
	"github.com/rxtech-lab/argo-stream/internal/types"
	"github.com/rxtech-lab/argo-stream/pkg/debounce"
	"github.com/rxtech-lab/argo-stream/pkg/stream"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func loadConfig() (stream.Config, error) {
	cfg := stream.DefaultConfig()

	path := os.Getenv("STREAM_CONFIG")
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

func run() error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interval := types.Interval1m
	if raw := os.Getenv("STREAM_INTERVAL"); raw != "" {
		interval, err = types.ParseInterval(raw)
		if err != nil {
			return err
		}
	}

	symbols := os.Args[1:]
	if len(symbols) == 0 {
		symbols = []string{"btcusdt"}
	}

	client, err := stream.NewClient(cfg, log.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	// Final bars print immediately; in-progress updates are coalesced so a
	// fast feed prints at most one per quiet period.
	printer := debounce.New[types.Kline](debounce.DefaultDelay, log.Logger)
	defer func() { _ = printer.Close() }()

	printKline := func(_ context.Context, k types.Kline) error {
		fmt.Printf("%s %s [%s] o=%s h=%s l=%s c=%s v=%s final=%t\n",
			k.CloseTime.Format(time.TimeOnly), k.Symbol, k.Interval,
			k.Open, k.High, k.Low, k.Close, k.Volume, k.IsFinal)

		return nil
	}

	client.OnKline(func(k types.Kline) {
		if k.IsFinal {
			_ = printKline(context.Background(), k)

			return
		}

		printer.Trigger(k, printKline)
	})

	client.OnStatus(func(s types.ConnectionStatus) {
		if s.Connected {
			log.Info("feed connected")

			return
		}

		log.Warn("feed disconnected", zap.String("message", s.Message), zap.Error(s.Err))
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HandshakeTimeout)
	defer cancel()

	for _, symbol := range symbols {
		if err := client.Subscribe(ctx, symbol, interval); err != nil {
			return err
		}

		log.Info("subscribed", zap.String("symbol", symbol), zap.String("interval", string(interval)))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
