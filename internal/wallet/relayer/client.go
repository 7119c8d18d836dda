// Package relayer is the JSON-RPC client of the transaction relayer.
package relayer

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/metrics"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
	"github.com/pkg/errors"
)

const (
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 30
)

type Config struct {
	URL          string
	ChainID      int64
	PollInterval time.Duration
	PollAttempts int
	HTTPClient   *http.Client
}

type Client struct {
	url          string
	chainID      int64
	pollInterval time.Duration
	pollAttempts int
	http         *http.Client
	nextID       atomic.Int64
}

func NewClient(cfg Config) *Client {
	c := &Client{
		url:          strings.TrimRight(cfg.URL, "/") + "/v1/transactions",
		chainID:      cfg.ChainID,
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
		http:         cfg.HTTPClient,
	}

	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.pollAttempts <= 0 {
		c.pollAttempts = DefaultPollAttempts
	}
	if c.http == nil {
		c.http = util.NewHTTPClient()
	}

	return c
}

// EthSendTransaction submits execute calldata for wallet and returns the relayer transaction id.
func (c *Client) EthSendTransaction(ctx context.Context, user *auth.User, wallet common.Address, data []byte) (string, error) {
	var id string
	err := c.call(ctx, user, "eth_sendTransaction", &id, sendTransactionParams{
		To:      wallet.Hex(),
		Data:    hexutil.Encode(data),
		ChainID: chain.EIP155(c.chainID),
	})

	return id, err
}

func (c *Client) ImGetTransactionByHash(ctx context.Context, user *auth.User, relayerID string) (*Transaction, error) {
	var tx Transaction
	if err := c.call(ctx, user, "im_getTransactionByHash", &tx, relayerID); err != nil {
		return nil, err
	}

	return &tx, nil
}

// ImSign asks the relayer to counter-sign an ERC-191 message for wallet.
func (c *Client) ImSign(ctx context.Context, user *auth.User, wallet common.Address, message string) (string, error) {
	var signature string
	err := c.call(ctx, user, "im_sign", &signature, signParams{
		ChainID: chain.EIP155(c.chainID),
		Address: wallet.Hex(),
		Message: message,
	})

	return signature, err
}

// ImSignTypedData asks the relayer to counter-sign EIP-712 typed data for wallet.
func (c *Client) ImSignTypedData(ctx context.Context, user *auth.User, wallet common.Address, typedData any) (string, error) {
	var signature string
	err := c.call(ctx, user, "im_signTypedData", &signature, signTypedDataParams{
		ChainID:       chain.EIP155(c.chainID),
		Address:       wallet.Hex(),
		EIP712Payload: typedData,
	})

	return signature, err
}

func (c *Client) ImGetFeeOptions(ctx context.Context, user *auth.User, wallet common.Address, data []byte) ([]FeeOption, error) {
	var options []FeeOption
	err := c.call(ctx, user, "im_getFeeOptions", &options, feeOptionsParams{
		UserAddress: wallet.Hex(),
		Data:        hexutil.Encode(data),
		ChainID:     chain.EIP155(c.chainID),
	})

	return options, err
}

// GetFeeOption quotes txs and returns the IMX denominated option. Its absence is an error.
func (c *Client) GetFeeOption(ctx context.Context, user *auth.User, wallet common.Address, txs []sequence.MetaTransaction) (*FeeOption, error) {
	data, err := sequence.EncodeTransactions(txs)
	if err != nil {
		return nil, err
	}

	options, err := c.ImGetFeeOptions(ctx, user, wallet, data)
	if err != nil {
		return nil, err
	}

	for i := range options {
		if strings.EqualFold(options[i].TokenSymbol, FeeTokenSymbol) {
			return &options[i], nil
		}
	}

	return nil, errors.Errorf("failed to retrieve fees for %s token", FeeTokenSymbol)
}

// PollTransaction waits for relayerID to reach a terminal status and returns the on-chain hash.
func (c *Client) PollTransaction(ctx context.Context, user *auth.User, relayerID string) (string, error) {
	log := util.LogFromContext(ctx).With().Str("relayer_id", relayerID).Logger()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		tx, err := c.ImGetTransactionByHash(ctx, user, relayerID)
		if err != nil {
			metrics.RelayerPollAttemptsTotal.WithLabelValues(metrics.PollResultError).Inc()
			return "", err
		}

		switch {
		case tx.Status.IsSuccess():
			metrics.RelayerPollAttemptsTotal.WithLabelValues(metrics.PollResultSuccess).Inc()
			log.Debug().Int("attempt", attempt).Str("hash", tx.Hash).Msg("Relayer transaction settled")
			return tx.Hash, nil
		case tx.Status.IsFailure():
			metrics.RelayerPollAttemptsTotal.WithLabelValues(metrics.PollResultFailure).Inc()
			return "", rpcerr.Newf(rpcerr.CodeRPCServerError, "transaction failed to submit with status %s. Error message: %s",
				tx.Status, tx.StatusMessage)
		default:
			metrics.RelayerPollAttemptsTotal.WithLabelValues(metrics.PollResultPending).Inc()
		}

		if attempt < c.pollAttempts {
			select {
			case <-ctx.Done():
				return "", errors.Wrap(ctx.Err(), "transaction status polling cancelled")
			case <-ticker.C:
			}
		}
	}

	metrics.RelayerPollAttemptsTotal.WithLabelValues(metrics.PollResultTimeout).Inc()
	log.Warn().Int("attempts", c.pollAttempts).Msg("Relayer transaction did not settle")

	return "", rpcerr.ServerError("transaction hash not generated in time")
}

// FeeValue is a convenience over GetFeeOption returning the fee amount and recipient.
func (c *Client) FeeValue(ctx context.Context, user *auth.User, wallet common.Address, txs []sequence.MetaTransaction) (*big.Int, common.Address, error) {
	option, err := c.GetFeeOption(ctx, user, wallet, txs)
	if err != nil {
		return nil, common.Address{}, err
	}

	fee, err := option.Fee()
	if err != nil {
		return nil, common.Address{}, err
	}

	if fee.Sign() > 0 && !common.IsHexAddress(option.RecipientAddress) {
		return nil, common.Address{}, errors.Errorf("invalid fee recipient %q", option.RecipientAddress)
	}

	return fee, common.HexToAddress(option.RecipientAddress), nil
}

func (c *Client) call(ctx context.Context, user *auth.User, method string, out any, params ...any) error {
	token, err := user.BearerToken()
	if err != nil {
		return errors.Wrapf(err, "relayer %s", method)
	}

	req := request{
		JSONRPC: "2.0",
		ID:      int(c.nextID.Add(1)),
		Method:  method,
		Params:  params,
	}

	var resp response
	if err := util.DoJSON(ctx, c.http, http.MethodPost, c.url, map[string]string{"Authorization": token}, req, &resp); err != nil {
		return errors.Wrapf(err, "relayer %s", method)
	}

	if resp.Error != nil {
		return errors.Errorf("relayer %s: %d: %s", method, resp.Error.Code, resp.Error.Message)
	}

	if len(resp.Result) == 0 || out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Result, out); err != nil {
		return errors.Wrapf(err, "relayer %s: failed to decode result", method)
	}

	return nil
}
