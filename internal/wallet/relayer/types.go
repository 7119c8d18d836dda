package relayer

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the relayer side state of a submitted meta-transaction.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusSubmitted  TransactionStatus = "SUBMITTED"
	StatusSuccessful TransactionStatus = "SUCCESSFUL"
	StatusReverted   TransactionStatus = "REVERTED"
	StatusFailed     TransactionStatus = "FAILED"
	StatusCancelled  TransactionStatus = "CANCELLED"
)

// IsSuccess reports whether the relayer has accepted the transaction on chain.
func (s TransactionStatus) IsSuccess() bool {
	return s == StatusSuccessful || s == StatusSubmitted
}

func (s TransactionStatus) IsFailure() bool {
	return s == StatusReverted || s == StatusFailed
}

// FeeTokenSymbol is the only fee denomination the provider pays in.
const FeeTokenSymbol = "IMX"

type FeeOption struct {
	TokenPrice       string `json:"tokenPrice"`
	TokenSymbol      string `json:"tokenSymbol"`
	TokenDecimals    int    `json:"tokenDecimals"`
	TokenAddress     string `json:"tokenAddress"`
	RecipientAddress string `json:"recipientAddress"`
}

// Fee returns TokenPrice as an integer amount in the token's smallest unit.
func (f FeeOption) Fee() (*big.Int, error) {
	price := strings.TrimSpace(f.TokenPrice)
	if price == "" {
		return new(big.Int), nil
	}

	if strings.HasPrefix(price, "0x") {
		v, ok := new(big.Int).SetString(price[2:], 16)
		if !ok {
			return nil, errors.Errorf("invalid token price %q", f.TokenPrice)
		}

		return v, nil
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid token price %q", f.TokenPrice)
	}

	if d.IsNegative() {
		return nil, errors.Errorf("negative token price %q", f.TokenPrice)
	}

	return d.Ceil().BigInt(), nil
}

// Transaction is the result of im_getTransactionByHash.
type Transaction struct {
	Status        TransactionStatus `json:"status"`
	ChainID       string            `json:"chainId"`
	RelayerID     string            `json:"relayerId"`
	Hash          string            `json:"hash"`
	StatusMessage string            `json:"statusMessage,omitempty"`
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcFailed      `json:"error,omitempty"`
}

type rpcFailed struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type sendTransactionParams struct {
	To      string `json:"to"`
	Data    string `json:"data"`
	ChainID string `json:"chainId"`
}

type signParams struct {
	ChainID string `json:"chainId"`
	Address string `json:"address"`
	Message string `json:"message"`
}

type signTypedDataParams struct {
	ChainID       string `json:"chainId"`
	Address       string `json:"address"`
	EIP712Payload any    `json:"eip712Payload"`
}

type feeOptionsParams struct {
	UserAddress string `json:"userAddress"`
	Data        string `json:"data"`
	ChainID     string `json:"chainId"`
}
