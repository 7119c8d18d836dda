package seed

// Manager holds the BIP-39 seed of the local signer
type Manager interface {
	// Initialize derives the seed from mnemonic and passphrase
	Initialize(mnemonic string, passphrase string) error

	// GetSeed gets the seed (from memory)
	GetSeed() []byte

	// DerivePrivateKey derives the secp256k1 key at a BIP-44 path from the seed
	// WARNING: Caller must clear the private key after use
	DerivePrivateKey(path string) ([]byte, error)

	// IsInitialized checks if seed is initialized
	IsInitialized() bool

	// Clear clears the seed from memory
	Clear()
}

// DefaultPath is the first account of the standard Ethereum derivation path
const DefaultPath = "m/44'/60'/0'/0/0"
