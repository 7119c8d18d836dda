package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/keystore"
	"github.com/pkg/errors"
)

// New creates the signer selected by cfg.Kind. Local signers take, in order of preference, a private key,
// a mnemonic or an encrypted keystore.
//
//nolint:ireturn
func New(ctx context.Context, cfg config.Signer, users auth.Manager) (Signer, error) {
	log := util.LogFromContext(ctx)

	switch cfg.Kind {
	case config.SignerKindTEE:
		if cfg.TEEURL == "" {
			return nil, errors.New("TEE signer requires a URL")
		}
		log.Debug().Str("url", cfg.TEEURL).Msg("Using TEE signer")
		return NewTEESigner(cfg.TEEURL, cfg.TEEAPIKey, users, nil), nil

	case config.SignerKindIdentity:
		if cfg.IdentityURL == "" {
			return nil, errors.New("identity signer requires a URL")
		}
		log.Debug().Str("url", cfg.IdentityURL).Msg("Using identity instrument signer")
		return NewIdentitySigner(cfg.IdentityURL, users, nil), nil

	case config.SignerKindLocal, "":
		return newLocalFromConfig(cfg)

	default:
		return nil, errors.Errorf("unknown signer kind %q", cfg.Kind)
	}
}

func newLocalFromConfig(cfg config.Signer) (*LocalSigner, error) {
	switch {
	case cfg.PrivateKey != "":
		return NewLocalSigner(cfg.PrivateKey)
	case cfg.Mnemonic != "":
		return NewLocalSignerFromMnemonic(cfg.Mnemonic, cfg.DerivationPath)
	case cfg.KeystorePath != "":
		return newLocalFromKeystore(cfg.KeystorePath, cfg.KeystorePassword, cfg.DerivationPath)
	default:
		return nil, errors.New("local signer requires a private key, a mnemonic or a keystore")
	}
}

// newLocalFromKeystore prefers the derivation path stored in the keystore over fallbackPath and refuses
// a keystore that resolves to another address than the one it records.
func newLocalFromKeystore(path string, password string, fallbackPath string) (*LocalSigner, error) {
	ks := keystore.NewService(keystore.StandardScryptParams())

	file, err := ks.Load(path)
	if err != nil {
		return nil, err
	}

	secret, err := ks.Decrypt(file, password)
	if err != nil {
		return nil, err
	}

	derivationPath := ""
	if secret.DerivationPath == "" {
		derivationPath = fallbackPath
	}

	s, err := NewLocalSignerFromSecret(secret, derivationPath)
	if err != nil {
		return nil, err
	}

	if file.Address != "" && common.HexToAddress(file.Address) != s.address {
		return nil, errors.Errorf("keystore %s resolves to %s instead of %s", path, s.address.Hex(), file.Address)
	}

	return s, nil
}
