// Package guardian submits transactions and messages for risk evaluation before they are signed off.
package guardian

import (
	"context"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/metrics"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
	"github.com/pkg/errors"
)

const (
	erc191Path      = "/v1/erc191-messages/evaluate"
	eip712Path      = "/v1/eip712-messages/evaluate"
	transactionPath = "/v1/transactions/evm/evaluate"

	transactionRejected = "Transaction rejected by user"
	signatureRejected   = "Signature rejected by user"
)

type Config struct {
	APIURL     string
	ChainID    int64
	HTTPClient *http.Client
}

type Client struct {
	apiURL  string
	chainID int64
	http    *http.Client
	confirm Confirmer
}

func NewClient(cfg Config, confirm Confirmer) *Client {
	c := &Client{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		chainID: cfg.ChainID,
		http:    cfg.HTTPClient,
		confirm: confirm,
	}
	if c.http == nil {
		c.http = util.NewHTTPClient()
	}

	return c
}

// TransactionEvaluation is the input of EvaluateTransaction.
type TransactionEvaluation struct {
	Nonce        *big.Int
	Wallet       common.Address
	Transactions []sequence.MetaTransaction
	// IsBackground transactions never touch the confirmation window when no confirmation is required.
	IsBackground bool
}

// EvaluateTransaction fails with TRANSACTION_REJECTED when the guardian asks for a confirmation the user refuses.
func (c *Client) EvaluateTransaction(ctx context.Context, user *auth.User, eval TransactionEvaluation) error {
	body := transactionEvaluationRequest{
		ChainType: "evm",
		ChainID:   chain.EIP155(c.chainID),
		TransactionData: transactionData{
			Nonce:            eval.Nonce.String(),
			UserAddress:      eval.Wallet.Hex(),
			MetaTransactions: toMetaTransactions(eval.Transactions),
		},
	}

	var resp evaluationResponse
	if err := c.post(ctx, user, KindEVMTransaction, transactionPath, body, &resp); err != nil {
		return err
	}

	if !resp.ConfirmationRequired {
		c.allowed(KindEVMTransaction, eval.IsBackground)
		return nil
	}

	if resp.TransactionID == "" {
		metrics.GuardianEvaluationsTotal.WithLabelValues(string(KindEVMTransaction), metrics.OutcomeError).Inc()
		return rpcerr.Internal("transaction requires confirmation but no transaction id was returned")
	}

	result, err := c.confirm.RequestTransactionConfirmation(ctx, resp.TransactionID, eval.Wallet.Hex(), big.NewInt(c.chainID))
	if err != nil {
		metrics.GuardianEvaluationsTotal.WithLabelValues(string(KindEVMTransaction), metrics.OutcomeError).Inc()
		return rpcerr.Wrap(err, rpcerr.CodeInternalError, "transaction confirmation failed")
	}

	return c.decided(KindEVMTransaction, result.Confirmed, transactionRejected)
}

// EvaluateERC191Message evaluates a personal_sign payload.
func (c *Client) EvaluateERC191Message(ctx context.Context, user *auth.User, payload string, wallet common.Address) error {
	return c.evaluateMessage(ctx, user, KindERC191, erc191Path, payload, wallet)
}

// EvaluateEIP712Message evaluates a typed data payload.
func (c *Client) EvaluateEIP712Message(ctx context.Context, user *auth.User, payload any, wallet common.Address) error {
	return c.evaluateMessage(ctx, user, KindEIP712, eip712Path, payload, wallet)
}

func (c *Client) evaluateMessage(ctx context.Context, user *auth.User, kind Kind, path string, payload any, wallet common.Address) error {
	body := messageEvaluationRequest{
		ChainID: chain.EIP155(c.chainID),
		Payload: payload,
	}

	var resp evaluationResponse
	if err := c.post(ctx, user, kind, path, body, &resp); err != nil {
		return err
	}

	if !resp.ConfirmationRequired {
		c.allowed(kind, false)
		return nil
	}

	if resp.MessageID == "" {
		metrics.GuardianEvaluationsTotal.WithLabelValues(string(kind), metrics.OutcomeError).Inc()
		return rpcerr.Internal("message requires confirmation but no message id was returned")
	}

	result, err := c.confirm.RequestMessageConfirmation(ctx, resp.MessageID, wallet.Hex(), string(kind))
	if err != nil {
		metrics.GuardianEvaluationsTotal.WithLabelValues(string(kind), metrics.OutcomeError).Inc()
		return rpcerr.Wrap(err, rpcerr.CodeInternalError, "message confirmation failed")
	}

	return c.decided(kind, result.Confirmed, signatureRejected)
}

func (c *Client) allowed(kind Kind, background bool) {
	metrics.GuardianEvaluationsTotal.WithLabelValues(string(kind), metrics.OutcomeAllowed).Inc()

	if !background {
		c.confirm.CloseWindow()
	}
}

func (c *Client) decided(kind Kind, confirmed bool, rejectedMessage string) error {
	if !confirmed {
		metrics.GuardianEvaluationsTotal.WithLabelValues(string(kind), metrics.OutcomeRejected).Inc()
		return rpcerr.TransactionRejected(rejectedMessage)
	}

	metrics.GuardianEvaluationsTotal.WithLabelValues(string(kind), metrics.OutcomeConfirmed).Inc()

	return nil
}

func (c *Client) post(ctx context.Context, user *auth.User, kind Kind, path string, body any, out *evaluationResponse) error {
	token, err := user.BearerToken()
	if err != nil {
		return rpcerr.Wrap(err, rpcerr.CodeInternalError, "guardian evaluation")
	}

	err = util.DoJSON(ctx, c.http, http.MethodPost, c.apiURL+path, map[string]string{"Authorization": token}, body, out)
	if err != nil {
		metrics.GuardianEvaluationsTotal.WithLabelValues(string(kind), metrics.OutcomeError).Inc()
		util.LogFromContext(ctx).Warn().Err(err).Str("kind", string(kind)).Msg("Guardian evaluation failed")

		return rpcerr.Wrap(errors.Wrapf(err, "%s evaluation", kind), rpcerr.CodeInternalError, "guardian evaluation failed")
	}

	return nil
}
