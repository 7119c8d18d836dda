// Package metatx turns transaction requests into wallet meta-transactions.
package metatx

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
	"golang.org/x/sync/errgroup"
)

type NonceReader interface {
	GetNonce(ctx context.Context, wallet common.Address, space *big.Int) (*big.Int, error)
}

type FeeQuoter interface {
	FeeValue(ctx context.Context, user *auth.User, wallet common.Address, txs []sequence.MetaTransaction) (*big.Int, common.Address, error)
}

type Builder struct {
	nonces NonceReader
	fees   FeeQuoter
}

func NewBuilder(nonces NonceReader, fees FeeQuoter) *Builder {
	return &Builder{nonces: nonces, fees: fees}
}

// Result holds the ordered meta-transactions and the nonce they are signed with.
type Result struct {
	Transactions []sequence.MetaTransaction
	Nonce        *big.Int
}

// Build validates req and returns the primary meta-transaction, followed by a fee transfer when the relayer
// charges one. Nonce and fee quote are fetched concurrently.
func (b *Builder) Build(ctx context.Context, req TransactionRequest, wallet common.Address, user *auth.User, space *big.Int) (*Result, error) {
	if req.To == nil {
		return nil, rpcerr.InvalidParams(`eth_sendTransaction requires a "to" field`)
	}

	primary := Primary(req)

	var (
		nonce     *big.Int
		fee       *big.Int
		recipient common.Address
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nonce, err = b.nonces.GetNonce(gctx, wallet, space)
		return err
	})
	g.Go(func() error {
		var err error
		fee, recipient, err = b.fees.FeeValue(gctx, user, wallet, []sequence.MetaTransaction{primary})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	txs := []sequence.MetaTransaction{primary}
	if fee.Sign() > 0 {
		txs = append(txs, FeeTransfer(recipient, fee))
	}

	util.LogFromContext(ctx).Debug().
		Str("wallet", wallet.Hex()).
		Str("nonce", nonce.String()).
		Str("fee", fee.String()).
		Int("transactions", len(txs)).
		Msg("Built meta transactions")

	return &Result{Transactions: txs, Nonce: nonce}, nil
}

// Primary builds the user's meta-transaction from req with defaults for every missing field.
func Primary(req TransactionRequest) sequence.MetaTransaction {
	tx := sequence.MetaTransaction{
		DelegateCall:  false,
		RevertOnError: true,
		GasLimit:      new(big.Int),
		Value:         req.Value.BigInt(),
		Data:          []byte{},
	}

	if req.To != nil {
		tx.Target = *req.To
	}
	if len(req.Data) > 0 {
		tx.Data = append([]byte{}, req.Data...)
	}

	return tx
}

// FeeTransfer pays fee in the native token to recipient.
func FeeTransfer(recipient common.Address, fee *big.Int) sequence.MetaTransaction {
	return sequence.MetaTransaction{
		DelegateCall:  false,
		RevertOnError: true,
		GasLimit:      new(big.Int),
		Target:        recipient,
		Value:         new(big.Int).Set(fee),
		Data:          []byte{},
	}
}
