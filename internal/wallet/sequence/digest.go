package sequence

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EthSignPrefix starts every sub-digest.
const EthSignPrefix = "\x19\x01"

// EncodeMessageSubDigest renders prefix || chainId (32 bytes, hex) || wallet (lowercase hex) || digest (hex)
// as a string. The verifier hashes the UTF-8 bytes of this string, not the raw binary.
func EncodeMessageSubDigest(chainID *big.Int, wallet common.Address, digest common.Hash) string {
	var b strings.Builder
	b.WriteString(EthSignPrefix)
	b.WriteString(fmt.Sprintf("%064x", chainID))
	b.WriteString(strings.ToLower(strings.TrimPrefix(wallet.Hex(), "0x")))
	b.WriteString(strings.TrimPrefix(digest.Hex(), "0x"))

	return b.String()
}

// SubDigestHash is keccak256 over the UTF-8 bytes of EncodeMessageSubDigest. This is the payload the EOA signs.
func SubDigestHash(chainID *big.Int, wallet common.Address, digest common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte(EncodeMessageSubDigest(chainID, wallet, digest)))
}

// ERC191Digest is the EIP-191 personal message hash of payload.
func ERC191Digest(payload []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(payload))
}
