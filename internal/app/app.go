// Package app wires the configured storage, use cases and HTTP router together
// and runs the server until the context is canceled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/nowisf/url-shortner/internal/config"
	"github.com/nowisf/url-shortner/internal/usecase"
	"golang.org/x/sync/errgroup"

	delivery "github.com/nowisf/url-shortner/internal/adapter/delivery/http"
)

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	repo, closeStorage, err := newStorage(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logger.Error("failed to close storage", httplog.ErrAttr(err))
		}
	}()

	opts := []usecase.Option{
		usecase.WithShortCodeLength(cfg.ShortCodeLength),
		usecase.WithMaxRetries(cfg.MaxRetries),
		usecase.WithStoreTimeout(cfg.StoreTimeout),
		usecase.WithLogger(logger.Logger),
	}

	shortener := usecase.NewShortener(repo, opts...)
	redirector := usecase.NewRedirector(repo, opts...)

	router := delivery.NewRouter(logger, shortener, redirector, delivery.RouterConfig{
		BaseURL:        cfg.BaseURL,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableListing:  cfg.Env != config.EnvProd,
	})

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			"addr", server.Addr,
			"env", cfg.Env,
			"storage", cfg.Storage.Driver,
		)

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
