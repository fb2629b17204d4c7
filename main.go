package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/evkuzin/weatherstation-influx/config"
)

func main() {
	conf, err := config.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, closeLog, err := newLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, cleanup, err := newStation(conf, logger)
	if err != nil {
		logger.Errorf("cannot init station: %s", err.Error())
		os.Exit(1)
	}
	defer cleanup()

	if err := ws.Init(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Errorf("cannot start station: %s", err.Error())
		cleanup()
		os.Exit(1)
	}
	ws.Start(ctx)
	logger.Info("all threads killed, shutdown...")
}
