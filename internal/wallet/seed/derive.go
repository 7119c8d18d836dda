package seed

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
)

// DerivePrivateKey derives a private key from seed and BIP44 path
// WARNING: Caller must clear the private key after use
func DerivePrivateKey(seed []byte, path string) ([]byte, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse BIP44 path")
	}

	// Create master key from seed
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	// Derive key step by step
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	// Return private key (32 bytes)
	return key.Key, nil
}

// ParsePath parses a BIP44 path string into indices
// Example: "m/44'/60'/0'/0/0" -> [2147483692, 2147483708, 2147483648, 0, 0]
func ParsePath(path string) ([]uint32, error) {
	if path == "m" {
		return []uint32{}, nil
	}

	if !strings.HasPrefix(path, "m/") {
		return nil, errors.Errorf("invalid BIP44 path: %s", path)
	}

	parts := strings.Split(strings.TrimPrefix(path, "m/"), "/")
	indices := make([]uint32, 0, len(parts))

	for _, part := range parts {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}

		parsed, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, errors.Errorf("invalid path segment: %s", part)
		}

		index := uint32(parsed)
		if hardened {
			index += bip32.FirstHardenedChild
		}

		indices = append(indices, index)
	}

	return indices, nil
}
