package sequence

import "math/big"

// NonceSpaceBits is the width of the local nonce below the space.
const NonceSpaceBits = 96

var (
	localNonceMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), NonceSpaceBits), big.NewInt(1))
	maxSpace       = new(big.Int).Lsh(big.NewInt(1), 160)
)

// EncodeNonce returns space * 2^96 + local.
func EncodeNonce(space, local *big.Int) *big.Int {
	shifted := new(big.Int).Lsh(space, NonceSpaceBits)
	return shifted.Add(shifted, local)
}

// DecodeNonce splits an effective nonce into its space and local part.
func DecodeNonce(nonce *big.Int) (space, local *big.Int) {
	return new(big.Int).Rsh(nonce, NonceSpaceBits), new(big.Int).And(nonce, localNonceMask)
}

// ValidSpace reports whether space fits in 160 bits.
func ValidSpace(space *big.Int) bool {
	return space != nil && space.Sign() >= 0 && space.Cmp(maxSpace) < 0
}
