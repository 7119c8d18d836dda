package provider

import (
	"context"
	"net/http"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/ethrpc"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/guardian"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/metatx"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/nonce"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/passportapi"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/relayer"
	"github.com/pkg/errors"
)

// clients is everything bound to one chain. A bundle is never mutated after construction, a chain switch
// replaces it as a whole.
type clients struct {
	chain    chain.Config
	rpc      *ethrpc.Client
	relayer  *relayer.Client
	guardian *guardian.Client
	api      *passportapi.Client
	nonces   *nonce.Resolver
	builder  *metatx.Builder
}

func newClients(ctx context.Context, cfg chain.Config, passport config.Passport, confirm guardian.Confirmer, httpClient *http.Client) (*clients, error) {
	rpc, err := ethrpc.Dial(ctx, cfg.RPCURLs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial RPC for chain %d", cfg.ChainID)
	}

	relayerClient := relayer.NewClient(relayer.Config{
		URL:          cfg.RelayerURL,
		ChainID:      cfg.ChainID,
		PollInterval: passport.PollInterval,
		PollAttempts: passport.PollAttempts,
		HTTPClient:   httpClient,
	})

	resolver := nonce.NewResolver(rpc)

	return &clients{
		chain:   cfg,
		rpc:     rpc,
		relayer: relayerClient,
		guardian: guardian.NewClient(guardian.Config{
			APIURL:     cfg.APIURL,
			ChainID:    cfg.ChainID,
			HTTPClient: httpClient,
		}, confirm),
		api: passportapi.NewClient(passportapi.Config{
			APIURL:     cfg.APIURL,
			HTTPClient: httpClient,
			CacheTTL:   passport.AddressCacheTTL,
		}),
		nonces:  resolver,
		builder: metatx.NewBuilder(resolver, relayerClient),
	}, nil
}

func (c *clients) close() {
	c.rpc.Close()
}
