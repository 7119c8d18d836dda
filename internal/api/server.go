package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/confirmation"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/provider"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/signer"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type Router struct {
	Routes       []*echo.Route
	Root         *echo.Group
	Management   *echo.Group
	RPC          *echo.Group
	Confirmation *echo.Group
}

// Server is a central struct keeping all the dependencies.
// Echo and Router are initialized by router.Init(s), the wallet components by InitProvider.
type Server struct {
	Echo   *echo.Echo
	Router *Router

	Config   config.Server
	Clock    time2.Clock
	Chains   chain.Service
	Users    auth.Manager
	Opener   *WebsocketOpener
	Provider *provider.Provider
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
		Clock:  time2.DefaultClock,
	}

	return s
}

// InitProvider wires the chain registry, the session, the confirmation bridge and the provider.
// The signer is created on first use.
func (s *Server) InitProvider(ctx context.Context) error {
	chains, err := chain.NewServiceFromConfig(s.Config.Passport)
	if err != nil {
		return fmt.Errorf("failed to load chains: %w", err)
	}

	users := auth.NewStaticManager(s.Config.Auth)
	opener := NewWebsocketOpener(s.Config.Passport.Domain, s.Config.Passport.ConfirmationConnectTimeout, s.Clock)

	screen := confirmation.NewScreen(confirmation.Config{
		Domain:       s.Config.Passport.Domain,
		Width:        s.Config.Passport.ConfirmationWidth,
		Height:       s.Config.Passport.ConfirmationHeight,
		PollInterval: s.Config.Passport.ConfirmationPollInterval,
	}, opener, nil)

	signerConfig := s.Config.Signer
	p, err := provider.New(ctx, provider.Config{
		Passport: s.Config.Passport,
		Chains:   chains,
		Users:    users,
		SignerFactory: func(ctx context.Context) (signer.Signer, error) {
			return signer.New(ctx, signerConfig, users)
		},
		Confirmer: screen,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	s.Chains = chains
	s.Users = users
	s.Opener = opener
	s.Provider = p

	return nil
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Provider != nil {
		log.Debug().Msg("Closing provider")
		s.Provider.Close()
	}

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	return errs
}
