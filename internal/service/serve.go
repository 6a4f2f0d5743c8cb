package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/gnomegl/commitctx/internal/blame"
	"github.com/gnomegl/commitctx/internal/server"
	"go.uber.org/zap"
)

// Handler builds the HTTP handler with every provider that can be created.
func (o *Orchestrator) Handler(ctx context.Context) http.Handler {
	blamers := make(map[string]blame.FileBlamer)
	for _, provider := range []string{"gitlab", "github"} {
		b, err := o.Blamer(ctx, provider)
		if err != nil {
			o.logger.Warn("provider disabled", zap.String("provider", provider), zap.Error(err))
			continue
		}
		blamers[provider] = b
	}

	opts := server.Options{
		Logger:   o.logger,
		Gatherer: o.registry,
		Metrics:  o.metrics,
		Blamers:  blamers,
	}
	if links, err := o.Links(); err == nil {
		opts.Links = links
	} else {
		o.logger.Warn("signed links disabled", zap.Error(err))
	}
	return server.New(opts)
}

// Serve runs the HTTP server until ctx is cancelled.
func (o *Orchestrator) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              o.config.ListenAddr,
		Handler:           o.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		color.New(color.FgBlue).Fprintf(o.stderr, "Listening on %s\n", o.config.ListenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
