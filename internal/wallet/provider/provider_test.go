package provider_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/test"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/confirmation"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/provider"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/relayer"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/signer"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chainID        = int64(13371)
	passportDomain = "https://passport.example.com"
	signerKey      = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	signerAddress  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	walletAddress  = "0x7EF14B8b6a4e4D28b02FBbcF54D6F3C5aA6cEc2C"
	feeRecipient   = "0x00000000000000000000000000000000000000fe"
)

type harness struct {
	node     *test.RPCServer
	relayer  *test.RPCServer
	api      *test.RESTServer
	opener   *confirmation.ChannelOpener
	chains   chain.Service
	provider *provider.Provider

	mu               sync.Mutex
	guardianResponse map[string]any
}

func (h *harness) setGuardianResponse(resp map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.guardianResponse = resp
}

type options struct {
	walletAddress string
	autoLogin     bool
	loggedOut     bool

	// transaction evaluations wait until the signer has started signing
	signingStarted chan struct{}
}

type notifyingSigner struct {
	signer.Signer
	once    sync.Once
	started chan struct{}
}

func (s *notifyingSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	s.once.Do(func() { close(s.started) })

	return s.Signer.SignMessage(ctx, message)
}

func newHarness(t *testing.T, opts options) *harness {
	t.Helper()

	h := &harness{
		node:             test.NewTestRPCServer(t),
		relayer:          test.NewTestRPCServer(t),
		api:              test.NewTestRESTServer(t),
		opener:           confirmation.NewChannelOpener(0),
		guardianResponse: map[string]any{"confirmationRequired": false},
	}

	// undeployed wallet
	h.node.HandleResult("eth_call", "0x")
	h.node.HandleResult("eth_blockNumber", "0x10")

	h.relayer.HandleResult("im_getFeeOptions", []relayer.FeeOption{
		{TokenSymbol: "ETH", TokenPrice: "5", RecipientAddress: feeRecipient},
		{TokenSymbol: "IMX", TokenPrice: "0", TokenDecimals: 18, RecipientAddress: feeRecipient},
	})
	h.relayer.HandleResult("eth_sendTransaction", "relayer-id")
	h.relayer.HandleResult("im_getTransactionByHash", relayer.Transaction{
		Status:    relayer.StatusSuccessful,
		RelayerID: "relayer-id",
		Hash:      "0xhash",
	})
	h.relayer.HandleResult("im_sign", relayerSignature(t))
	h.relayer.HandleResult("im_signTypedData", relayerSignature(t))

	evaluate := func(c echo.Context) error {
		h.mu.Lock()
		resp := h.guardianResponse
		h.mu.Unlock()

		return c.JSON(http.StatusOK, resp)
	}
	h.api.Echo.POST("/v1/transactions/evm/evaluate", func(c echo.Context) error {
		if opts.signingStarted != nil {
			select {
			case <-opts.signingStarted:
			case <-time.After(2 * time.Second):
				return c.JSON(http.StatusInternalServerError, map[string]string{"message": "signing never started"})
			}
		}

		return evaluate(c)
	})
	h.api.Echo.POST("/v1/erc191-messages/evaluate", evaluate)
	h.api.Echo.POST("/v1/eip712-messages/evaluate", evaluate)
	h.api.Echo.GET("/v1/chains", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"result": []map[string]string{
			{"id": "eip155:13371", "name": "imtbl-zkevm-testnet"},
		}})
	})
	h.api.Echo.POST("/v2/passport/:chain/counterfactual-address", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]string{"counterfactual_address": walletAddress})
	})

	chains, err := chain.NewService(chain.Config{
		ChainID:    chainID,
		Name:       "Immutable zkEVM Testnet",
		RPCURLs:    []string{h.node.URL},
		RelayerURL: h.relayer.URL,
		APIURL:     h.api.URL,
	})
	require.NoError(t, err)
	h.chains = chains

	users := auth.NewStaticManager(config.Auth{
		AccessToken:   "access-token",
		Subject:       "email|1",
		WalletAddress: opts.walletAddress,
	})
	if !opts.loggedOut {
		_, err := users.Login(context.Background())
		require.NoError(t, err)
	}

	screen := confirmation.NewScreen(confirmation.Config{
		Domain:       passportDomain,
		PollInterval: 5 * time.Millisecond,
	}, h.opener, nil)

	local, err := signer.NewLocalSigner(signerKey)
	require.NoError(t, err)

	var eoa signer.Signer = local
	if opts.signingStarted != nil {
		eoa = &notifyingSigner{Signer: local, started: opts.signingStarted}
	}

	p, err := provider.New(context.Background(), provider.Config{
		Passport: config.Passport{
			ChainID:      chainID,
			AutoLogin:    opts.autoLogin,
			PollInterval: time.Millisecond,
			PollAttempts: 30,
		},
		Chains: chains,
		Users:  users,
		SignerFactory: func(context.Context) (signer.Signer, error) {
			return eoa, nil
		},
		Confirmer: screen,
	})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	h.provider = p

	return h
}

func (h *harness) request(method string, params ...any) (any, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	return h.provider.Request(context.Background(), provider.RequestArguments{Method: method, Params: raw})
}

func relayerSignature(t *testing.T) string {
	t.Helper()

	encoded, err := sequence.EncodeSignature(sequence.Signature{Threshold: 1, Signers: []sequence.SignerEntry{
		{Unrecovered: true, Weight: 1, Signature: bytes.Repeat([]byte{0xee}, sequence.SignatureLength)},
	}})
	require.NoError(t, err)

	// the relayer answers without the version and threshold header
	return hexutil.Encode(encoded[2:])
}

func requireCode(t *testing.T, err error, code rpcerr.Code) {
	t.Helper()

	require.Error(t, err)
	var rpcErr *rpcerr.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, code, rpcErr.Code, rpcErr.Message)
}

func TestSendTransactionUndeployedWalletNoFee(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	result, err := h.request(provider.MethodSendTransaction, map[string]string{
		"to":    "0x0000000000000000000000000000000000000abc",
		"value": "1000",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xhash", result)

	sends := h.relayer.Calls("eth_sendTransaction")
	require.Len(t, sends, 1)
	assert.Equal(t, "Bearer access-token", sends[0].Authorization)
	assert.Len(t, h.relayer.Calls("im_getTransactionByHash"), 1)

	var sent struct {
		To      string `json:"to"`
		Data    string `json:"data"`
		ChainID string `json:"chainId"`
	}
	require.NoError(t, json.Unmarshal(sends[0].Params[0], &sent))
	assert.Equal(t, common.HexToAddress(walletAddress).Hex(), sent.To)
	assert.Equal(t, "eip155:13371", sent.ChainID)

	calldata, err := hexutil.Decode(sent.Data)
	require.NoError(t, err)

	method := sequence.WalletABI.Methods["execute"]
	require.Equal(t, method.ID, calldata[:4])

	args, err := method.Inputs.Unpack(calldata[4:])
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.Equal(t, 0, big.NewInt(0).Cmp(args[1].(*big.Int)))

	encodedTxs, err := json.Marshal(args[0])
	require.NoError(t, err)
	var txs []map[string]any
	require.NoError(t, json.Unmarshal(encodedTxs, &txs))
	require.Len(t, txs, 1, "zero fee quote builds a single meta transaction")

	evaluations := h.api.Calls("/v1/transactions/evm/evaluate")
	require.Len(t, evaluations, 1)

	var evaluation struct {
		ChainID         string `json:"chainId"`
		TransactionData struct {
			Nonce            string           `json:"nonce"`
			UserAddress      string           `json:"userAddress"`
			MetaTransactions []map[string]any `json:"metaTransactions"`
		} `json:"transactionData"`
	}
	require.NoError(t, json.Unmarshal(evaluations[0].Body, &evaluation))
	assert.Equal(t, "eip155:13371", evaluation.ChainID)
	assert.Equal(t, "0", evaluation.TransactionData.Nonce)
	require.Len(t, evaluation.TransactionData.MetaTransactions, 1)
	assert.Equal(t, "1000", evaluation.TransactionData.MetaTransactions[0]["value"])
}

func TestSendTransactionEvaluatesWhileSigning(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress, signingStarted: make(chan struct{})})

	result, err := h.request(provider.MethodSendTransaction, map[string]string{
		"to": "0x0000000000000000000000000000000000000abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xhash", result)
	assert.Len(t, h.api.Calls("/v1/transactions/evm/evaluate"), 1)
	assert.Len(t, h.relayer.Calls("eth_sendTransaction"), 1)
}

func TestSendTransactionAppendsFee(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})
	h.relayer.HandleResult("im_getFeeOptions", []relayer.FeeOption{
		{TokenSymbol: "IMX", TokenPrice: "0x10", RecipientAddress: feeRecipient},
	})

	_, err := h.request(provider.MethodSendTransaction, map[string]string{"to": "0x0000000000000000000000000000000000000abc"})
	require.NoError(t, err)

	evaluations := h.api.Calls("/v1/transactions/evm/evaluate")
	require.Len(t, evaluations, 1)
	assert.Contains(t, string(evaluations[0].Body), `"value":"16"`)
	assert.Contains(t, string(evaluations[0].Body), common.HexToAddress(feeRecipient).Hex())
}

func TestSendTransactionRejectedByUser(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})
	h.setGuardianResponse(map[string]any{"confirmationRequired": true, "transactionId": "guardian-tx"})

	go func() {
		w := <-h.opener.Windows
		w.Send(passportDomain, confirmation.NewMessage(confirmation.MessageWindowReady))
		<-w.Outbound()
		w.Send(passportDomain, confirmation.NewMessage(confirmation.MessageTransactionRejected))
	}()

	_, err := h.request(provider.MethodSendTransaction, map[string]string{"to": "0x0000000000000000000000000000000000000abc"})
	requireCode(t, err, rpcerr.CodeTransactionRejected)

	assert.Empty(t, h.relayer.Calls("eth_sendTransaction"))
	assert.Equal(t, 1, h.opener.Opened())
}

func TestSendTransactionConfirmedByUser(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})
	h.setGuardianResponse(map[string]any{"confirmationRequired": true, "transactionId": "guardian-tx"})

	go func() {
		w := <-h.opener.Windows
		w.Send(passportDomain, confirmation.NewMessage(confirmation.MessageWindowReady))
		<-w.Outbound()
		w.Send(passportDomain, confirmation.NewMessage(confirmation.MessageTransactionConfirmed))
	}()

	result, err := h.request(provider.MethodSendTransaction, map[string]string{"to": "0x0000000000000000000000000000000000000abc"})
	require.NoError(t, err)
	assert.Equal(t, "0xhash", result)
	assert.Len(t, h.relayer.Calls("eth_sendTransaction"), 1)
}

func TestSendTransactionRequiresWallet(t *testing.T) {
	h := newHarness(t, options{})

	_, err := h.request(provider.MethodSendTransaction, map[string]string{"to": "0x0000000000000000000000000000000000000abc"})
	requireCode(t, err, rpcerr.CodeUnauthorized)
}

func TestSendTransactionRequiresTo(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	_, err := h.request(provider.MethodSendTransaction, map[string]string{"value": "1"})
	requireCode(t, err, rpcerr.CodeInvalidParams)
	assert.Empty(t, h.relayer.Calls(""))
}

func TestSendTransactionRelayerFailure(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})
	h.relayer.HandleResult("im_getTransactionByHash", relayer.Transaction{
		Status:        relayer.StatusReverted,
		StatusMessage: "execution reverted",
	})

	_, err := h.request(provider.MethodSendTransaction, map[string]string{"to": "0x0000000000000000000000000000000000000abc"})
	requireCode(t, err, rpcerr.CodeRPCServerError)
}

func TestRequestAccountsRegistersWallet(t *testing.T) {
	h := newHarness(t, options{loggedOut: true, autoLogin: true})

	events := make(chan []string, 1)
	sub := h.provider.SubscribeAccountsChanged(events)
	defer sub.Unsubscribe()

	result, err := h.request(provider.MethodRequestAccounts)
	require.NoError(t, err)
	assert.Equal(t, []string{common.HexToAddress(walletAddress).Hex()}, result)

	select {
	case accounts := <-events:
		assert.Equal(t, result, accounts)
	case <-time.After(time.Second):
		t.Fatal("accountsChanged not emitted")
	}

	calls := h.api.Calls("/v2/passport/imtbl-zkevm-testnet/counterfactual-address")
	require.Len(t, calls, 1)

	var body struct {
		EthereumAddress   string `json:"ethereum_address"`
		EthereumSignature string `json:"ethereum_signature"`
	}
	require.NoError(t, json.Unmarshal(calls[0].Body, &body))
	assert.Equal(t, signerAddress, body.EthereumAddress)

	sig, err := hexutil.Decode(body.EthereumSignature)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(provider.RegistrationMessage)), sig)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(signerAddress), crypto.PubkeyToAddress(*pub))

	accountsResult, err := h.request(provider.MethodAccounts)
	require.NoError(t, err)
	assert.Equal(t, result, accountsResult)

	// known wallet short-circuits
	_, err = h.request(provider.MethodRequestAccounts)
	require.NoError(t, err)
	assert.Len(t, h.api.Calls("/v2/passport/imtbl-zkevm-testnet/counterfactual-address"), 1)
}

func TestRequestAccountsWithoutAutoLogin(t *testing.T) {
	h := newHarness(t, options{loggedOut: true})

	_, err := h.request(provider.MethodRequestAccounts)
	requireCode(t, err, rpcerr.CodeUnauthorized)

	accountsResult, err := h.request(provider.MethodAccounts)
	require.NoError(t, err)
	assert.Equal(t, []string{}, accountsResult)
}

func TestPersonalSign(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	result, err := h.request(provider.MethodPersonalSign, "0x68656c6c6f", walletAddress)
	require.NoError(t, err)

	sig, err := sequence.DecodeSignatureHex(result.(string))
	require.NoError(t, err)
	assert.Equal(t, uint8(2), sig.Threshold)
	require.Len(t, sig.Signers, 2)
	assert.Nil(t, sig.Signers[0].Address)
	assert.Equal(t, common.HexToAddress(signerAddress), *sig.Signers[1].Address)

	// EOA signs the sub-digest of the EIP-191 hash of the decoded message
	digest := sequence.SubDigestHash(big.NewInt(chainID), common.HexToAddress(walletAddress), sequence.ERC191Digest([]byte("hello")))
	ecdsaSig := common.CopyBytes(sig.Signers[1].Signature[:sequence.ECDSASignatureLength])
	ecdsaSig[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), ecdsaSig)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(signerAddress), crypto.PubkeyToAddress(*pub))

	signCalls := h.relayer.Calls("im_sign")
	require.Len(t, signCalls, 1)
	assert.Contains(t, string(signCalls[0].Params[0]), `"message":"hello"`)
	assert.Len(t, h.api.Calls("/v1/erc191-messages/evaluate"), 1)
}

func TestPersonalSignKeepsHashHex(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	// 32 bytes of valid UTF-8 are still treated as a hash
	message := hexutil.Encode([]byte("0123456789abcdef0123456789abcdef"))

	result, err := h.request(provider.MethodPersonalSign, message, walletAddress)
	require.NoError(t, err)

	digest := sequence.SubDigestHash(big.NewInt(chainID), common.HexToAddress(walletAddress), sequence.ERC191Digest([]byte(message)))
	assert.Equal(t, common.HexToAddress(signerAddress), eoaSigner(t, result.(string), digest))

	signCalls := h.relayer.Calls("im_sign")
	require.Len(t, signCalls, 1)
	assert.Contains(t, string(signCalls[0].Params[0]), `"message":"`+message+`"`)
}

func TestPersonalSignWrongAddress(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	_, err := h.request(provider.MethodPersonalSign, "hello", "0x0000000000000000000000000000000000000001")
	requireCode(t, err, rpcerr.CodeInvalidParams)
	assert.Empty(t, h.relayer.Calls("im_sign"))
}

func typedData(chainIDValue any) map[string]any {
	return map[string]any{
		"types": map[string]any{
			"EIP712Domain": []map[string]string{
				{"name": "name", "type": "string"},
				{"name": "chainId", "type": "uint256"},
			},
			"Mail": []map[string]string{{"name": "contents", "type": "string"}},
		},
		"primaryType": "Mail",
		"domain":      map[string]any{"name": "Test", "chainId": chainIDValue},
		"message":     map[string]any{"contents": "hello"},
	}
}

func TestSignTypedData(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	for _, chainIDValue := range []any{chainID, "13371", "0x343b"} {
		result, err := h.request(provider.MethodSignTypedDataV4, walletAddress, typedData(chainIDValue))
		require.NoError(t, err)

		sig, err := sequence.DecodeSignatureHex(result.(string))
		require.NoError(t, err)
		assert.Len(t, sig.Signers, 2)
	}

	encoded, err := json.Marshal(typedData(chainID))
	require.NoError(t, err)
	_, err = h.request(provider.MethodSignTypedData, walletAddress, string(encoded))
	require.NoError(t, err)

	assert.Len(t, h.relayer.Calls("im_signTypedData"), 4)
	assert.Len(t, h.api.Calls("/v1/eip712-messages/evaluate"), 4)
}

func eoaSigner(t *testing.T, packed string, digest common.Hash) common.Address {
	t.Helper()

	sig, err := sequence.DecodeSignatureHex(packed)
	require.NoError(t, err)
	require.Len(t, sig.Signers, 2)

	ecdsaSig := common.CopyBytes(sig.Signers[1].Signature[:sequence.ECDSASignatureLength])
	ecdsaSig[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), ecdsaSig)
	require.NoError(t, err)

	return crypto.PubkeyToAddress(*pub)
}

func TestSignTypedDataWithoutDomainType(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	withDomainType, err := json.Marshal(typedData(chainID))
	require.NoError(t, err)
	var expected apitypes.TypedData
	require.NoError(t, json.Unmarshal(withDomainType, &expected))
	hash, _, err := apitypes.TypedDataAndHash(expected)
	require.NoError(t, err)

	data := typedData(chainID)
	delete(data["types"].(map[string]any), "EIP712Domain")

	result, err := h.request(provider.MethodSignTypedDataV4, walletAddress, data)
	require.NoError(t, err)

	digest := sequence.SubDigestHash(big.NewInt(chainID), common.HexToAddress(walletAddress), common.BytesToHash(hash))
	assert.Equal(t, common.HexToAddress(signerAddress), eoaSigner(t, result.(string), digest))

	// forwarded as sent
	calls := h.relayer.Calls("im_signTypedData")
	require.Len(t, calls, 1)
	assert.NotContains(t, string(calls[0].Params[0]), "EIP712Domain")
}

func TestSignTypedDataValidation(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	_, err := h.request(provider.MethodSignTypedDataV4, walletAddress, typedData("0x1"))
	requireCode(t, err, rpcerr.CodeInvalidParams)

	incomplete := typedData(chainID)
	delete(incomplete, "message")
	delete(incomplete, "types")
	_, err = h.request(provider.MethodSignTypedDataV4, walletAddress, incomplete)
	requireCode(t, err, rpcerr.CodeInvalidParams)
	assert.Contains(t, err.Error(), "types, message")

	extraField := typedData(chainID)
	extraField["message"] = map[string]any{"contents": "hello", "unknown": "field"}
	_, err = h.request(provider.MethodSignTypedDataV4, walletAddress, extraField)
	requireCode(t, err, rpcerr.CodeInvalidParams)

	assert.Empty(t, h.api.Calls("/v1/eip712-messages/evaluate"))
	assert.Empty(t, h.relayer.Calls("im_signTypedData"))
}

func TestSwitchChain(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	other := test.NewTestRPCServer(t)
	require.NoError(t, h.chains.AddChain(chain.Config{
		ChainID:    5,
		RPCURLs:    []string{other.URL},
		RelayerURL: h.relayer.URL,
		APIURL:     h.api.URL,
	}))

	events := make(chan string, 1)
	sub := h.provider.SubscribeChainChanged(events)
	defer sub.Unsubscribe()

	_, err := h.request(provider.MethodSwitchChain, map[string]string{"chainId": "0x5"})
	require.NoError(t, err)

	select {
	case id := <-events:
		assert.Equal(t, "0x5", id)
	case <-time.After(time.Second):
		t.Fatal("chainChanged not emitted")
	}

	result, err := h.request(provider.MethodChainID)
	require.NoError(t, err)
	assert.Equal(t, "0x5", result)

	other.HandleResult("eth_blockNumber", "0x99")
	result, err = h.request("eth_blockNumber")
	require.NoError(t, err)
	assert.JSONEq(t, `"0x99"`, string(result.(json.RawMessage)))
}

func TestSwitchToUnknownChain(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	_, err := h.request(provider.MethodSwitchChain, map[string]string{"chainId": "0x1"})
	requireCode(t, err, rpcerr.CodeUnsupportedMethod)

	result, err := h.request(provider.MethodChainID)
	require.NoError(t, err)
	assert.Equal(t, "0x343b", result)
	assert.Equal(t, chainID, h.provider.ChainID())
}

func TestAddChain(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})
	other := test.NewTestRPCServer(t)

	_, err := h.request(provider.MethodAddChain, map[string]any{
		"chainId":   "0x7",
		"chainName": "Devnet",
		"rpcUrls":   []string{other.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), h.provider.ChainID())

	added, err := h.chains.GetChain(7)
	require.NoError(t, err)
	assert.Equal(t, h.relayer.URL, added.RelayerURL)

	_, err = h.request(provider.MethodAddChain, map[string]any{"chainId": "0x8", "rpcUrls": []string{}})
	requireCode(t, err, rpcerr.CodeInvalidParams)
	assert.Equal(t, int64(7), h.provider.ChainID())
}

func TestSignEjectionTransaction(t *testing.T) {
	h := newHarness(t, options{walletAddress: walletAddress})

	result, err := h.request(provider.MethodSignEjection, map[string]string{
		"to":    "0x0000000000000000000000000000000000000abc",
		"data":  "0xdeadbeef",
		"nonce": "0x2",
	})
	require.NoError(t, err)

	ejection, ok := result.(*provider.EjectionTransaction)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(walletAddress).Hex(), ejection.To)
	assert.Equal(t, "eip155:13371", ejection.ChainID)

	calldata, err := hexutil.Decode(ejection.Data)
	require.NoError(t, err)
	args, err := sequence.WalletABI.Methods["execute"].Inputs.Unpack(calldata[4:])
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(2).Cmp(args[1].(*big.Int)))

	assert.Empty(t, h.relayer.Calls(""))
	assert.Empty(t, h.api.Calls(""))

	_, err = h.request(provider.MethodSignEjection, map[string]string{"to": "0x0000000000000000000000000000000000000abc"})
	requireCode(t, err, rpcerr.CodeInvalidParams)
}

func TestPassthroughAndUnsupported(t *testing.T) {
	h := newHarness(t, options{})

	result, err := h.request("eth_blockNumber")
	require.NoError(t, err)
	assert.JSONEq(t, `"0x10"`, string(result.(json.RawMessage)))

	_, err = h.request("eth_getBalance", "0x0000000000000000000000000000000000000abc", "latest")
	requireCode(t, err, rpcerr.Code(-32601))

	_, err = h.request("eth_sign", "0x00")
	requireCode(t, err, rpcerr.CodeUnsupportedMethod)
	assert.Empty(t, h.node.Calls("eth_sign"))
}

func TestAddSessionActivityWithoutWallet(t *testing.T) {
	h := newHarness(t, options{})

	result, err := h.request(provider.MethodAddSessionActivity, map[string]string{"clientId": "client"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHealthy(t *testing.T) {
	h := newHarness(t, options{})

	h.node.HandleResult("eth_chainId", hexutil.EncodeUint64(uint64(chainID)))
	require.NoError(t, h.provider.Healthy(context.Background()))

	h.node.HandleResult("eth_chainId", "0x1")
	require.Error(t, h.provider.Healthy(context.Background()))
}
