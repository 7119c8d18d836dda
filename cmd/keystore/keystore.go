package keystore

import (
	"fmt"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util/command"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/keystore"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/seed"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/signer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	pathFlag           = "path"
	derivationPathFlag = "derivation-path"
	lightFlag          = "light"
	privateKeyFlag     = "private-key"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("keystore",
		newCreate(),
		newAddress(),
	)
}

func newCreate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Encrypts a mnemonic or a private key into a new keystore file",
		Long: `Encrypts a mnemonic or a private key into a new keystore file used by the local signer.

The mnemonic, private key and password are taken from PASSPORT_SIGNER_MNEMONIC, PASSPORT_SIGNER_PRIVATE_KEY
and PASSPORT_SIGNER_KEYSTORE_PASSWORD or prompted for. The derivation path and signer address are recorded
next to the encrypted secret. An existing keystore is never overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreate(cmd)
		},
	}

	addFlags(cmd)
	cmd.Flags().Bool(lightFlag, false, "Use light scrypt parameters (fast, for throwaway keystores only)")
	cmd.Flags().Bool(privateKeyFlag, false, "Store a private key instead of a mnemonic")

	return cmd
}

func newAddress() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Prints the signer address of a keystore file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAddress(cmd)
		},
	}

	addFlags(cmd)

	return cmd
}

func addFlags(cmd *cobra.Command) {
	cmd.Flags().String(pathFlag, "", "Keystore file (defaults to PASSPORT_SIGNER_KEYSTORE_PATH)")
	cmd.Flags().String(derivationPathFlag, "", "BIP-44 derivation path (defaults to the keystore's, then PASSPORT_SIGNER_DERIVATION_PATH)")
}

// signerConfig merges the flags of cmd into the signer section of the config.
func signerConfig(cmd *cobra.Command) (config.Signer, error) {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return config.Signer{}, err
	}

	s := cfg.Signer
	if path, _ := cmd.Flags().GetString(pathFlag); path != "" {
		s.KeystorePath = path
	}

	if s.KeystorePath == "" {
		return config.Signer{}, errors.New("keystore path is required")
	}

	return s, nil
}

func runCreate(cmd *cobra.Command) error {
	cfg, err := signerConfig(cmd)
	if err != nil {
		return err
	}

	secret, err := createSecret(cmd, cfg)
	if err != nil {
		return err
	}

	password := cfg.KeystorePassword
	if password == "" {
		if password, err = promptPassword("Enter keystore password: "); err != nil {
			return err
		}

		confirm, err := promptPassword("Confirm keystore password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return errors.New("passwords do not match")
		}
	}

	// resolve first so an invalid secret never reaches disk
	s, err := signer.NewLocalSignerFromSecret(secret, "")
	if err != nil {
		return err
	}

	address, err := s.Address(cmd.Context())
	if err != nil {
		return err
	}

	params := keystore.StandardScryptParams()
	if light, _ := cmd.Flags().GetBool(lightFlag); light {
		params = keystore.LightScryptParams()
	}

	if _, err := keystore.NewService(params).CreateKeystore(cfg.KeystorePath, *secret, address, password); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created keystore %s\nSigner address: %s\n", cfg.KeystorePath, address.Hex())

	return nil
}

func createSecret(cmd *cobra.Command, cfg config.Signer) (*keystore.Secret, error) {
	var err error

	if usePrivateKey, _ := cmd.Flags().GetBool(privateKeyFlag); usePrivateKey {
		key := cfg.PrivateKey
		if key == "" {
			if key, err = promptPassword("Enter private key: "); err != nil {
				return nil, err
			}
		}

		return &keystore.Secret{Kind: keystore.KindPrivateKey, Value: key}, nil
	}

	mnemonic := cfg.Mnemonic
	if mnemonic == "" {
		if mnemonic, err = promptPassword("Enter mnemonic: "); err != nil {
			return nil, err
		}
	}

	path := cfg.DerivationPath
	if flagPath, _ := cmd.Flags().GetString(derivationPathFlag); flagPath != "" {
		path = flagPath
	}
	if path == "" {
		path = seed.DefaultPath
	}

	return &keystore.Secret{Kind: keystore.KindMnemonic, Value: mnemonic, DerivationPath: path}, nil
}

func runAddress(cmd *cobra.Command) error {
	cfg, err := signerConfig(cmd)
	if err != nil {
		return err
	}

	password := cfg.KeystorePassword
	if password == "" {
		if password, err = promptPassword("Enter keystore password: "); err != nil {
			return err
		}
	}

	// the scrypt parameters are read from the file
	ks := keystore.NewService(keystore.StandardScryptParams())

	file, err := ks.Load(cfg.KeystorePath)
	if err != nil {
		return err
	}

	secret, err := ks.Decrypt(file, password)
	if err != nil {
		return err
	}

	override, _ := cmd.Flags().GetString(derivationPathFlag)
	path := override
	if path == "" && secret.DerivationPath == "" {
		path = cfg.DerivationPath
	}

	s, err := signer.NewLocalSignerFromSecret(secret, path)
	if err != nil {
		return err
	}

	address, err := s.Address(cmd.Context())
	if err != nil {
		return err
	}

	if override == "" && file.Address != "" && common.HexToAddress(file.Address) != address {
		return errors.Errorf("keystore resolves to %s instead of the recorded %s", address.Hex(), file.Address)
	}

	fmt.Fprintln(cmd.OutOrStdout(), address.Hex())

	return nil
}

// promptPassword prompts for password input (hides input)
//
//nolint:forbidigo // Password input requires direct terminal I/O
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	// Read password from terminal (hides input)
	passwordBytes, err := term.ReadPassword(syscall.Stdin)
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}

	fmt.Println() // New line after password input

	return string(passwordBytes), nil
}
