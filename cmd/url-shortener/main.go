package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v2"
	"github.com/nowisf/url-shortner/internal/app"
	"github.com/nowisf/url-shortner/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := httplog.NewLogger("url-shortener", httplog.Options{
		LogLevel: cfg.Level(),
		JSON:     cfg.Env == config.EnvProd,
		Concise:  cfg.Env == config.EnvDev,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("application stopped with error", httplog.ErrAttr(err))
		os.Exit(1)
	}
}
