package keystore

import (
	"encoding/json"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const fileMode = 0o600

type service struct {
	params ScryptParams
}

// NewService creates a keystore service that encrypts with params
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(params ScryptParams) Service {
	return &service{params: params}
}

func (s *service) CreateKeystore(path string, secret Secret, address common.Address, password string) (*File, error) {
	if password == "" {
		return nil, errors.New("keystore password must not be empty")
	}

	file, err := s.seal(secret, address, password)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal keystore JSON")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Errorf("keystore already exists at %s", path)
		}
		return nil, errors.Wrap(err, "failed to create keystore file")
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return nil, errors.Wrap(err, "failed to write keystore file")
	}

	return file, nil
}

// Load reads a keystore file. The kind and address are checked, the secret is not.
func (s *service) Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keystore file")
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal keystore JSON")
	}

	if file.Version != version {
		return nil, errors.Errorf("unsupported keystore version %d", file.Version)
	}
	if kind := file.SecretKind(); kind != KindMnemonic && kind != KindPrivateKey {
		return nil, errors.Errorf("unknown keystore secret kind %q", kind)
	}
	if file.Address != "" && !common.IsHexAddress(file.Address) {
		return nil, errors.Errorf("invalid keystore address %q", file.Address)
	}

	return &file, nil
}

func (s *service) Decrypt(file *File, password string) (*Secret, error) {
	return s.open(file, password)
}
