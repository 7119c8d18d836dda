package signer

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/keystore"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/seed"
	"github.com/pkg/errors"
)

// LocalSigner signs with an in-memory secp256k1 key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner parses a hex encoded private key, with or without 0x prefix.
func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(privateKeyHex))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}

	return newLocalSigner(key), nil
}

// NewLocalSignerFromSeed derives the key at path from an initialised seed manager.
func NewLocalSignerFromSeed(seedManager seed.Manager, path string) (*LocalSigner, error) {
	privateKey, err := seedManager.DerivePrivateKey(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive private key")
	}

	// Clear private key after use
	defer func() {
		for i := range privateKey {
			privateKey[i] = 0
		}
	}()

	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert private key to ECDSA")
	}

	return newLocalSigner(key), nil
}

// NewLocalSignerFromMnemonic derives the key at path from mnemonic. The seed is cleared before returning.
func NewLocalSignerFromMnemonic(mnemonic string, path string) (*LocalSigner, error) {
	seedManager := seed.NewManager()
	if err := seedManager.Initialize(mnemonic, ""); err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	defer seedManager.Clear()

	if path == "" {
		path = seed.DefaultPath
	}

	return NewLocalSignerFromSeed(seedManager, path)
}

// NewLocalSignerFromSecret builds the signer a decrypted keystore secret describes. A non empty path
// overrides the derivation path stored with a mnemonic.
func NewLocalSignerFromSecret(secret *keystore.Secret, path string) (*LocalSigner, error) {
	switch secret.Kind {
	case keystore.KindPrivateKey:
		return NewLocalSigner(secret.Value)
	case keystore.KindMnemonic:
		if path == "" {
			path = secret.DerivationPath
		}
		return NewLocalSignerFromMnemonic(secret.Value, path)
	default:
		return nil, errors.Errorf("unknown keystore secret kind %q", secret.Kind)
	}
}

func newLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *LocalSigner) Address(_ context.Context) (common.Address, error) {
	return s.address, nil
}

func (s *LocalSigner) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign message")
	}

	return normaliseV(sig), nil
}

func (s *LocalSigner) SignTypedData(_ context.Context, typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash typed data")
	}

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign typed data")
	}

	return normaliseV(sig), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}

	return s
}
