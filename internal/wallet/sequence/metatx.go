package sequence

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// MetaTransaction is one call executed by the wallet. Field names match the ABI tuple components.
type MetaTransaction struct {
	DelegateCall  bool           `abi:"delegateCall"`
	RevertOnError bool           `abi:"revertOnError"`
	GasLimit      *big.Int       `abi:"gasLimit"`
	Target        common.Address `abi:"target"`
	Value         *big.Int       `abi:"value"`
	Data          []byte         `abi:"data"`
}

// MessageSigner produces EIP-191 signatures over raw bytes.
type MessageSigner interface {
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// Normalise fills in zero values so every transaction can be ABI encoded.
func Normalise(txs []MetaTransaction) []MetaTransaction {
	out := make([]MetaTransaction, len(txs))
	for i, tx := range txs {
		out[i] = tx
		if tx.GasLimit == nil {
			out[i].GasLimit = new(big.Int)
		}
		if tx.Value == nil {
			out[i].Value = new(big.Int)
		}
		if tx.Data == nil {
			out[i].Data = []byte{}
		}
	}

	return out
}

// EncodeTransactions ABI encodes txs as a tuple array, the payload the relayer quotes fees for.
func EncodeTransactions(txs []MetaTransaction) ([]byte, error) {
	encoded, err := transactionsArgs.Pack(Normalise(txs))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode meta transactions")
	}

	return encoded, nil
}

// Digest is keccak256(abi.encode(nonce, txs)).
func Digest(nonce *big.Int, txs []MetaTransaction) (common.Hash, error) {
	packed, err := nonceTransactionsArgs.Pack(nonce, Normalise(txs))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to encode nonce and meta transactions")
	}

	return crypto.Keccak256Hash(packed), nil
}

// SignMetaTransactions signs txs for wallet on chainID and returns the execute calldata.
func SignMetaTransactions(
	ctx context.Context,
	txs []MetaTransaction,
	nonce *big.Int,
	chainID *big.Int,
	wallet common.Address,
	signer MessageSigner,
) ([]byte, error) {
	normalised := Normalise(txs)

	digest, err := Digest(nonce, normalised)
	if err != nil {
		return nil, err
	}

	hash := SubDigestHash(chainID, wallet, digest)

	ethSignature, err := signer.SignMessage(ctx, hash.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign meta transactions")
	}

	signature, err := EncodeSignature(Signature{
		Version:   0,
		Threshold: 1,
		Signers: []SignerEntry{{
			IsDynamic:   false,
			Unrecovered: true,
			Weight:      1,
			Signature:   WithEthSignFlag(ethSignature),
		}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode meta transaction signature")
	}

	calldata, err := WalletABI.Pack("execute", normalised, nonce, signature)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode execute call")
	}

	return calldata, nil
}
