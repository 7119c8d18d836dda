package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer is the externally owned account behind the smart contract wallet.
type Signer interface {
	// Address returns the signer's EOA address
	Address(ctx context.Context) (common.Address, error)

	// SignMessage returns an EIP-191 personal signature over message, with v in {27, 28}
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// TypedDataSigner is implemented by signers able to sign EIP-712 typed data directly.
type TypedDataSigner interface {
	SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error)
}

const signatureLength = 65

// normaliseV moves a recovery id in {0, 1} to {27, 28}.
func normaliseV(sig []byte) []byte {
	if len(sig) == signatureLength && sig[64] < 27 { //nolint:mnd
		sig[64] += 27
	}

	return sig
}
