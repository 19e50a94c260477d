package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/identity-mask/internal/api"
	"github.com/gonkalabs/identity-mask/internal/config"
	"github.com/gonkalabs/identity-mask/internal/credential"
	"github.com/gonkalabs/identity-mask/internal/extract"
	"github.com/gonkalabs/identity-mask/internal/signer"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the masking HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.ListenAddr = addr
			}
			srv, closeFn, err := newServer(cfg, opts.key)
			if err != nil {
				return err
			}
			defer closeFn()
			return serve(cmd.Context(), srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :$PORT)")
	return cmd
}

// newServer wires the API handler. Without an API key the server still
// masks pre-extracted documents.
func newServer(cfg *config.Cfg, flagKey string) (*http.Server, func(), error) {
	var ex extract.Extractor
	closeFn := func() {}

	keys, err := credential.Keys(cfg.APIKeys, flagKey, nil)
	switch {
	case errors.Is(err, credential.ErrNoCredentials):
		slog.Warn("no API key configured, /v1/mask is disabled")
	case err != nil:
		return nil, nil, err
	default:
		if ex, closeFn, err = newExtractor(cfg, keys); err != nil {
			return nil, nil, err
		}
	}

	var sig *signer.Signer
	if cfg.SigningKey != "" {
		if sig, err = signer.New(cfg.SigningKey); err != nil {
			closeFn()
			return nil, nil, err
		}
	}

	handler := api.New(ex, sig, api.Defaults{
		EntityTypes: cfg.EntityTypes,
		Masks:       cfg.Masks,
		Language:    cfg.Language,
	})

	mux := http.NewServeMux()
	handler.Register(mux)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("starting mask server",
		"addr", cfg.ListenAddr,
		"keys", len(keys),
		"cache", cfg.CachePath != "",
		"receipts", sig != nil,
	)
	return srv, closeFn, nil
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()

	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
