package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/guardian"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/metatx"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/signer"
)

// RegistrationMessage is signed by the EOA to claim its counterfactual wallet.
const RegistrationMessage = "Only sign this message from Immutable Passport"

// JSON-RPC methods served by the provider itself. Everything in passthroughMethods goes to the chain's RPC node.
const (
	MethodRequestAccounts    = "eth_requestAccounts"
	MethodAccounts           = "eth_accounts"
	MethodChainID            = "eth_chainId"
	MethodSendTransaction    = "eth_sendTransaction"
	MethodPersonalSign       = "personal_sign"
	MethodSignTypedData      = "eth_signTypedData"
	MethodSignTypedDataV4    = "eth_signTypedData_v4"
	MethodSwitchChain        = "wallet_switchEthereumChain"
	MethodAddChain           = "wallet_addEthereumChain"
	MethodSignEjection       = "im_signEjectionTransaction"
	MethodAddSessionActivity = "im_addSessionActivity"
)

var passthroughMethods = map[string]struct{}{
	"eth_getBalance":            {},
	"eth_getCode":               {},
	"eth_getTransactionCount":   {},
	"eth_getStorageAt":          {},
	"eth_call":                  {},
	"eth_estimateGas":           {},
	"eth_gasPrice":              {},
	"eth_blockNumber":           {},
	"eth_getBlockByHash":        {},
	"eth_getBlockByNumber":      {},
	"eth_getTransactionByHash":  {},
	"eth_getTransactionReceipt": {},
}

// SignerFactory creates the signer on first use.
type SignerFactory func(ctx context.Context) (signer.Signer, error)

type Config struct {
	Passport      config.Passport
	Chains        chain.Service
	Users         auth.Manager
	SignerFactory SignerFactory
	Confirmer     guardian.Confirmer
	HTTPClient    *http.Client
}

// RequestArguments is an EIP-1193 request.
type RequestArguments struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

type addChainParams struct {
	ChainID    string   `json:"chainId"`
	ChainName  string   `json:"chainName"`
	RPCURLs    []string `json:"rpcUrls"`
	RelayerURL string   `json:"relayerUrl,omitempty"`
	APIURL     string   `json:"apiUrl,omitempty"`
}

type ejectionParams struct {
	To    *common.Address  `json:"to"`
	Data  hexutil.Bytes    `json:"data,omitempty"`
	Value *metatx.Quantity `json:"value,omitempty"`
	Nonce *metatx.Quantity `json:"nonce"`
}

// EjectionTransaction is the result of im_signEjectionTransaction.
type EjectionTransaction struct {
	To      string `json:"to"`
	Data    string `json:"data"`
	ChainID string `json:"chainId"`
}

type sessionActivityParams struct {
	ClientID string `json:"clientId,omitempty"`
}
