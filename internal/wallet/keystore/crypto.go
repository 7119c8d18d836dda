package keystore

import (
	"strings"

	gethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const version = 3

var ErrWrongPassword = errors.New("invalid keystore password")

// seal encrypts the secret value. Kind, derivation path and address stay in the clear so the signer can
// be selected and checked without decrypting.
func (s *service) seal(secret Secret, address common.Address, password string) (*File, error) {
	if err := secret.validate(); err != nil {
		return nil, err
	}

	cryptoJSON, err := gethkeystore.EncryptDataV3([]byte(secret.Value), []byte(password), s.params.N, s.params.P)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt secret")
	}

	file := &File{
		Version: version,
		ID:      uuid.NewString(),
		Kind:    secret.Kind,
		Crypto:  cryptoJSON,
	}
	if address != (common.Address{}) {
		file.Address = address.Hex()
	}
	if secret.Kind == KindMnemonic {
		file.DerivationPath = secret.DerivationPath
	}

	return file, nil
}

func (s *service) open(file *File, password string) (*Secret, error) {
	plaintext, err := gethkeystore.DecryptDataV3(file.Crypto, password)
	if errors.Is(err, gethkeystore.ErrDecrypt) {
		return nil, ErrWrongPassword
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt keystore")
	}

	secret := &Secret{
		Kind:           file.SecretKind(),
		Value:          string(plaintext),
		DerivationPath: file.DerivationPath,
	}

	for i := range plaintext {
		plaintext[i] = 0
	}

	if err := secret.validate(); err != nil {
		return nil, errors.Wrap(err, "keystore holds a malformed secret")
	}

	return secret, nil
}

func (s Secret) validate() error {
	switch s.Kind {
	case KindMnemonic:
		if len(strings.Fields(s.Value)) == 0 {
			return errors.New("mnemonic must not be empty")
		}
	case KindPrivateKey:
		if _, err := crypto.HexToECDSA(strings.TrimPrefix(s.Value, "0x")); err != nil {
			return errors.Wrap(err, "invalid private key")
		}
	default:
		return errors.Errorf("unknown keystore secret kind %q", s.Kind)
	}

	return nil
}
