package guardian

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/confirmation"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
)

// Kind selects the evaluation endpoint.
type Kind string

const (
	KindERC191         Kind = "erc191"
	KindEIP712         Kind = "eip712"
	KindEVMTransaction Kind = "evmTransaction"
)

// Confirmer asks the user to approve what the guardian flagged.
type Confirmer interface {
	RequestTransactionConfirmation(ctx context.Context, transactionID, etherAddress string, chainID *big.Int) (confirmation.Result, error)
	RequestMessageConfirmation(ctx context.Context, messageID, etherAddress, messageType string) (confirmation.Result, error)
	CloseWindow()
}

type evaluationResponse struct {
	ConfirmationRequired bool   `json:"confirmationRequired"`
	TransactionID        string `json:"transactionId,omitempty"`
	MessageID            string `json:"messageId,omitempty"`
}

type messageEvaluationRequest struct {
	ChainID string `json:"chainID"`
	Payload any    `json:"payload"`
}

type transactionEvaluationRequest struct {
	ChainType       string          `json:"chainType"`
	ChainID         string          `json:"chainId"`
	TransactionData transactionData `json:"transactionData"`
}

type transactionData struct {
	Nonce            string            `json:"nonce"`
	UserAddress      string            `json:"userAddress"`
	MetaTransactions []metaTransaction `json:"metaTransactions"`
}

type metaTransaction struct {
	DelegateCall  bool   `json:"delegateCall"`
	RevertOnError bool   `json:"revertOnError"`
	GasLimit      string `json:"gasLimit"`
	Target        string `json:"target"`
	Value         string `json:"value"`
	Data          string `json:"data"`
}

func toMetaTransactions(txs []sequence.MetaTransaction) []metaTransaction {
	normalised := sequence.Normalise(txs)

	out := make([]metaTransaction, len(normalised))
	for i, tx := range normalised {
		out[i] = metaTransaction{
			DelegateCall:  tx.DelegateCall,
			RevertOnError: tx.RevertOnError,
			GasLimit:      tx.GasLimit.String(),
			Target:        tx.Target.Hex(),
			Value:         tx.Value.String(),
			Data:          hexutil.Encode(tx.Data),
		}
	}

	return out
}
