// Package nonce reads the on-chain nonce of a smart contract wallet.
package nonce

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
	"github.com/pkg/errors"
)

var (
	// ForegroundSpace is used for user initiated transactions.
	ForegroundSpace = big.NewInt(0)
	// BackgroundSpace is reserved for transactions sent without user interaction.
	BackgroundSpace = big.NewInt(1)
)

// Substrings of node errors returned for calls into an address without code.
var undeployedPatterns = []string{
	"no code at address",
	"no contract code",
	"call revert exception",
	"attempting to unmarshal an empty string",
}

// Resolver reads nonces through a read-only contract caller.
type Resolver struct {
	caller ethereum.ContractCaller
}

func NewResolver(caller ethereum.ContractCaller) *Resolver {
	return &Resolver{caller: caller}
}

// GetNonce returns the effective nonce of wallet in space: readNonce(space) + space * 2^96.
// An undeployed wallet has nonce 0.
func (r *Resolver) GetNonce(ctx context.Context, wallet common.Address, space *big.Int) (*big.Int, error) {
	log := util.LogFromContext(ctx)

	if space == nil {
		space = ForegroundSpace
	}

	if !sequence.ValidSpace(space) {
		return nil, errors.Errorf("invalid nonce space %s", space)
	}

	data, err := sequence.WalletABI.Pack("readNonce", space)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode readNonce call")
	}

	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &wallet, Data: data}, nil)
	if err != nil {
		if isUndeployed(err) {
			log.Debug().Str("wallet", wallet.Hex()).Err(err).Msg("Wallet not deployed, using nonce 0")
			return new(big.Int), nil
		}

		return nil, errors.Wrap(err, "failed to read wallet nonce")
	}

	if len(result) == 0 {
		log.Debug().Str("wallet", wallet.Hex()).Msg("Wallet has no code, using nonce 0")
		return new(big.Int), nil
	}

	values, err := sequence.WalletABI.Unpack("readNonce", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode readNonce result")
	}

	local, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected readNonce result type %T", values[0])
	}

	return sequence.EncodeNonce(space, local), nil
}

func isUndeployed(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range undeployedPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
