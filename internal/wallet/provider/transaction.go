package provider

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/guardian"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/metatx"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/nonce"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func (p *Provider) sendTransaction(ctx context.Context, c *clients, raw json.RawMessage) (string, error) {
	sess, err := p.ensureSigningReady(ctx)
	if err != nil {
		return "", err
	}

	params, err := parseParams(raw)
	if err != nil {
		return "", err
	}

	var req metatx.TransactionRequest
	if err := param(params, 0, "transaction", &req); err != nil {
		return "", err
	}

	return p.submit(ctx, c, sess, req, nonce.ForegroundSpace, false)
}

// SendBackgroundTransaction sends a call in the background nonce space. The guardian does not touch the
// confirmation window for it unless a confirmation is required.
func (p *Provider) SendBackgroundTransaction(ctx context.Context, wallet common.Address, to common.Address, data []byte) error {
	sess, err := p.ensureSigningReady(ctx)
	if err != nil {
		return err
	}

	if sess.wallet != wallet {
		return errors.Errorf("wallet changed from %s to %s", wallet.Hex(), sess.wallet.Hex())
	}

	req := metatx.TransactionRequest{To: &to, Data: data}

	_, err = p.submit(ctx, p.current.Load(), sess, req, nonce.BackgroundSpace, true)

	return err
}

// submit builds, evaluates, signs and relays req, then waits for the transaction hash.
func (p *Provider) submit(ctx context.Context, c *clients, sess *session, req metatx.TransactionRequest, space *big.Int, background bool) (string, error) {
	log := util.LogFromContext(ctx)

	built, err := c.builder.Build(ctx, req, sess.wallet, sess.user, space)
	if err != nil {
		return "", err
	}

	calldata, err := p.validateAndSign(ctx, c, sess, built, background)
	if err != nil {
		return "", err
	}

	relayerID, err := c.relayer.EthSendTransaction(ctx, sess.user, sess.wallet, calldata)
	if err != nil {
		return "", rpcerr.Wrap(err, rpcerr.CodeInternalError, "failed to submit transaction")
	}

	log.Debug().Str("relayer_id", relayerID).Str("nonce", built.Nonce.String()).Msg("Submitted transaction")

	return c.relayer.PollTransaction(ctx, sess.user, relayerID)
}

// validateAndSign runs the guardian evaluation and the signing concurrently. Both must succeed.
func (p *Provider) validateAndSign(ctx context.Context, c *clients, sess *session, built *metatx.Result, background bool) ([]byte, error) {
	var calldata []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.guardian.EvaluateTransaction(gctx, sess.user, guardian.TransactionEvaluation{
			Nonce:        built.Nonce,
			Wallet:       sess.wallet,
			Transactions: built.Transactions,
			IsBackground: background,
		})
	})
	g.Go(func() error {
		var err error
		calldata, err = sequence.SignMetaTransactions(gctx, built.Transactions, built.Nonce, c.chain.BigChainID(), sess.wallet, sess.signer)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return calldata, nil
}

// signEjectionTransaction signs a single call at the given nonce. Nothing is evaluated, quoted or relayed.
func (p *Provider) signEjectionTransaction(ctx context.Context, c *clients, raw json.RawMessage) (*EjectionTransaction, error) {
	sess, err := p.ensureSigningReady(ctx)
	if err != nil {
		return nil, err
	}

	params, err := parseParams(raw)
	if err != nil {
		return nil, err
	}

	var req ejectionParams
	if err := param(params, 0, "transaction", &req); err != nil {
		return nil, err
	}

	if req.To == nil {
		return nil, rpcerr.InvalidParams(`im_signEjectionTransaction requires a "to" field`)
	}
	if req.Nonce == nil {
		return nil, rpcerr.InvalidParams(`im_signEjectionTransaction requires a "nonce" field`)
	}

	tx := metatx.Primary(metatx.TransactionRequest{To: req.To, Data: req.Data, Value: req.Value})

	calldata, err := sequence.SignMetaTransactions(ctx, []sequence.MetaTransaction{tx}, req.Nonce.BigInt(), c.chain.BigChainID(), sess.wallet, sess.signer)
	if err != nil {
		return nil, err
	}

	return &EjectionTransaction{
		To:      sess.wallet.Hex(),
		Data:    hexutil.Encode(calldata),
		ChainID: c.chain.EIP155(),
	}, nil
}
