package seed

import (
	"crypto/sha512"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// manager implements seed management with thread-safe access
type manager struct {
	seed        []byte
	mu          sync.RWMutex
	initialized bool
}

// NewManager creates a new SeedManager
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewManager() Manager {
	return &manager{}
}

// Initialize converts mnemonic to seed using PBKDF2 (BIP39 standard)
func (m *manager) Initialize(mnemonic string, passphrase string) error {
	normalised := strings.Join(strings.Fields(mnemonic), " ")
	if err := validateWordCount(normalised); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// BIP39: seed = PBKDF2(mnemonic, "mnemonic" + passphrase, 2048, 64, SHA512)
	const (
		pbkdf2Iterations = 2048 // BIP39 standard iterations
		pbkdf2KeyLength  = 64   // BIP39 standard key length (512 bits)
	)

	m.clear()
	m.seed = pbkdf2.Key(
		[]byte(normalised),
		[]byte("mnemonic"+passphrase),
		pbkdf2Iterations,
		pbkdf2KeyLength,
		sha512.New,
	)
	m.initialized = true

	return nil
}

// GetSeed gets the seed (returns a copy to prevent external modification)
func (m *manager) GetSeed() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized || m.seed == nil {
		return nil
	}

	seedCopy := make([]byte, len(m.seed))
	copy(seedCopy, m.seed)
	return seedCopy
}

// DerivePrivateKey derives the key at path from the held seed
func (m *manager) DerivePrivateKey(path string) ([]byte, error) {
	seed := m.GetSeed()
	if seed == nil {
		return nil, errors.New("seed not initialized")
	}

	defer func() {
		for i := range seed {
			seed[i] = 0
		}
	}()

	return DerivePrivateKey(seed, path)
}

// IsInitialized checks if seed is initialized
func (m *manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.initialized
}

// Clear clears the seed from memory
func (m *manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clear()
}

func (m *manager) clear() {
	for i := range m.seed {
		m.seed[i] = 0
	}
	m.seed = nil
	m.initialized = false
}

func validateWordCount(mnemonic string) error {
	switch n := len(strings.Fields(mnemonic)); n {
	case 12, 15, 18, 21, 24: //nolint:mnd // BIP39 mnemonic lengths
		return nil
	default:
		return errors.Errorf("invalid mnemonic: expected 12, 15, 18, 21 or 24 words, got %d", n)
	}
}
