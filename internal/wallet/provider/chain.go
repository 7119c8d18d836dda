package provider

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/pkg/errors"
)

func (p *Provider) switchChain(ctx context.Context, c *clients, raw json.RawMessage) (any, error) {
	params, err := parseParams(raw)
	if err != nil {
		return nil, err
	}

	var req switchChainParams
	if err := param(params, 0, "chain", &req); err != nil {
		return nil, err
	}

	chainID, err := parseChainID(req.ChainID)
	if err != nil {
		return nil, err
	}

	if chainID == c.chain.ChainID {
		return nil, nil //nolint:nilnil
	}

	return nil, p.activateChain(ctx, chainID)
}

// addChain registers a chain and switches to it. Relayer and API endpoints default to the active chain's.
func (p *Provider) addChain(ctx context.Context, c *clients, raw json.RawMessage) (any, error) {
	params, err := parseParams(raw)
	if err != nil {
		return nil, err
	}

	var req addChainParams
	if err := param(params, 0, "chain", &req); err != nil {
		return nil, err
	}

	chainID, err := parseChainID(req.ChainID)
	if err != nil {
		return nil, err
	}

	cfg := chain.Config{
		ChainID:    chainID,
		Name:       req.ChainName,
		RPCURLs:    req.RPCURLs,
		RelayerURL: req.RelayerURL,
		APIURL:     req.APIURL,
	}
	if cfg.RelayerURL == "" {
		cfg.RelayerURL = c.chain.RelayerURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = c.chain.APIURL
	}

	if err := p.chains.AddChain(cfg); err != nil && !errors.Is(err, chain.ErrChainAlreadyExists) {
		return nil, rpcerr.Wrap(err, rpcerr.CodeInvalidParams, "invalid chain")
	}

	if chainID == c.chain.ChainID {
		return nil, nil //nolint:nilnil
	}

	return nil, p.activateChain(ctx, chainID)
}

// activateChain builds the whole client bundle for chainID before publishing it, so no request ever sees a
// partially switched provider. The previous bundle stays open for requests still using it.
func (p *Provider) activateChain(ctx context.Context, chainID int64) error {
	cfg, err := p.chains.GetChain(chainID)
	if err != nil {
		if errors.Is(err, chain.ErrChainNotFound) {
			return rpcerr.Newf(rpcerr.CodeUnsupportedMethod, "Chain %d is not supported", chainID)
		}
		return err
	}

	p.switchMu.Lock()
	defer p.switchMu.Unlock()

	next, err := newClients(ctx, cfg, p.passport, p.confirm, p.httpClient)
	if err != nil {
		return rpcerr.Wrap(err, rpcerr.CodeInternalError, "failed to switch chain")
	}

	previous := p.current.Swap(next)
	p.retired = append(p.retired, previous)

	util.LogFromContext(ctx).Info().
		Int64("from", previous.chain.ChainID).
		Int64("to", chainID).
		Msg("Switched chain")

	p.chainFeed.Send(hexutil.EncodeUint64(uint64(chainID))) //nolint:gosec

	return nil
}
