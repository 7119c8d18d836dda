package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api/router"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util/command"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the server",
		Long: `Starts the JSON-RPC gateway around one provider.

Requires configuration through ENV.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd)
		},
	}
}

func runServer(cmd *cobra.Command) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		if err := router.Init(s); err != nil {
			log.Error().Err(err).Msg("Failed to init router")
			return err
		}

		errs := make(chan error, 1)
		go func() {
			log.Info().
				Str("listen_address", s.Config.Echo.ListenAddress).
				Int64("chain_id", s.Provider.ChainID()).
				Msg("Starting server")

			if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()

		select {
		case <-ctx.Done():
			log.Info().Msg("Received shutdown signal")
			return nil
		case err := <-errs:
			log.Error().Err(err).Msg("Failed to start server")
			return err
		}
	})
}
