package keystore

import (
	gethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// Service stores a local signer secret encrypted at rest
type Service interface {
	// CreateKeystore encrypts secret and writes it to path; an existing file is never overwritten.
	// address is the signer address the secret resolves to, recorded so loads can be checked against it.
	CreateKeystore(path string, secret Secret, address common.Address, password string) (*File, error)

	// Load reads the keystore file at path
	Load(path string) (*File, error)

	// Decrypt recovers the secret held by file
	Decrypt(file *File, password string) (*Secret, error)
}

// Kind tells which local signer secret a keystore holds.
type Kind string

const (
	KindMnemonic   Kind = "mnemonic"
	KindPrivateKey Kind = "privateKey"
)

// Secret is the plaintext of a keystore.
type Secret struct {
	Kind Kind
	// Value holds the mnemonic words or the hex encoded private key
	Value string
	// DerivationPath is only meaningful for mnemonics
	DerivationPath string
}

// File is an Ethereum keystore v3 document extended with the secret kind, the derivation path and the
// signer address. Only the crypto section is secret.
type File struct {
	Version        int                     `json:"version"`
	ID             string                  `json:"id"`
	Kind           Kind                    `json:"kind"`
	Address        string                  `json:"address,omitempty"`
	DerivationPath string                  `json:"derivationPath,omitempty"`
	Crypto         gethkeystore.CryptoJSON `json:"crypto"`
}

// SecretKind returns the kind of the stored secret. Files written without a kind hold a mnemonic.
func (f *File) SecretKind() Kind {
	if f.Kind == "" {
		return KindMnemonic
	}

	return f.Kind
}

// ScryptParams are the scrypt cost parameters; the key length and block size are fixed by keystore v3.
type ScryptParams struct {
	N int
	P int
}

// StandardScryptParams returns the scrypt parameters of go-ethereum's standard keystores
func StandardScryptParams() ScryptParams {
	return ScryptParams{N: gethkeystore.StandardScryptN, P: gethkeystore.StandardScryptP}
}

// LightScryptParams trade security for speed; meant for tests and throwaway keystores
func LightScryptParams() ScryptParams {
	return ScryptParams{N: gethkeystore.LightScryptN, P: gethkeystore.LightScryptP}
}
