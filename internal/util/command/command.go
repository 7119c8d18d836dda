package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	// FlagConfig is the persistent flag naming an optional config file overlaying the environment.
	FlagConfig = "config"

	shutdownTimeout = 30 * time.Second
)

// NewSubcommandGroup returns a command that only groups subcommands and prints its help when run.
func NewSubcommandGroup(name string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("%s related subcommands", name),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(subcommands...)

	return cmd
}

// LoadConfig resolves the config of cmd from the environment and the optional --config file.
func LoadConfig(cmd *cobra.Command) (config.Server, error) {
	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		path = ""
	}

	return config.Load(path)
}

// ConfigureLogger applies the logger section of config to the global zerolog logger.
func ConfigureLogger(config config.LoggerServer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(util.LogLevelFromString(config.Level))

	if config.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = "15:04:05"
			w.Out = os.Stderr
		}))
	}
}

// WithServer initializes a server with its provider, runs f and shuts the server down afterwards.
// The echo routes are not attached, f decides whether to serve HTTP.
func WithServer(ctx context.Context, config config.Server, f func(ctx context.Context, s *api.Server) error) error {
	ConfigureLogger(config.Logger)

	s := api.NewServer(config)

	if err := s.InitProvider(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to initialize provider")
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
		}
	}()

	return f(ctx, s)
}
