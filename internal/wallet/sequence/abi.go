package sequence

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const walletABIJSON = `[
  {
    "type": "function",
    "name": "execute",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "_txs",
        "type": "tuple[]",
        "components": [
          {"name": "delegateCall", "type": "bool"},
          {"name": "revertOnError", "type": "bool"},
          {"name": "gasLimit", "type": "uint256"},
          {"name": "target", "type": "address"},
          {"name": "value", "type": "uint256"},
          {"name": "data", "type": "bytes"}
        ]
      },
      {"name": "_nonce", "type": "uint256"},
      {"name": "_signature", "type": "bytes"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "readNonce",
    "stateMutability": "view",
    "inputs": [{"name": "_space", "type": "uint256"}],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`

// WalletABI is the subset of the wallet main module used by the provider.
var WalletABI = mustParseABI(walletABIJSON)

var (
	metaTransactionsType = mustNewType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "delegateCall", Type: "bool"},
		{Name: "revertOnError", Type: "bool"},
		{Name: "gasLimit", Type: "uint256"},
		{Name: "target", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	})
	uint256Type = mustNewType("uint256", nil)

	transactionsArgs      = abi.Arguments{{Type: metaTransactionsType}}
	nonceTransactionsArgs = abi.Arguments{{Type: uint256Type}, {Type: metaTransactionsType}}
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}

	return parsed
}

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}

	return typ
}
