package config

import (
	"time"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
)

type EchoServer struct {
	Debug         bool   `mapstructure:"debug"`
	ListenAddress string `mapstructure:"listen_address"`
}

type LoggerServer struct {
	Level              string `mapstructure:"level"`
	RequestLevel       string `mapstructure:"request_level"`
	PrettyPrintConsole bool   `mapstructure:"pretty_print_console"`
}

// Passport describes the default chain and the services backing the provider.
type Passport struct {
	Domain     string   `mapstructure:"domain"`
	ChainID    int64    `mapstructure:"chain_id"`
	ChainName  string   `mapstructure:"chain_name"`
	RPCURLs    []string `mapstructure:"rpc_urls"`
	RelayerURL string   `mapstructure:"relayer_url"`
	APIURL     string   `mapstructure:"api_url"`
	ChainsFile string   `mapstructure:"chains_file"`
	AutoLogin  bool     `mapstructure:"auto_login"`
	ClientID   string   `mapstructure:"client_id"`

	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts int           `mapstructure:"poll_attempts"`

	ConfirmationWidth        int           `mapstructure:"confirmation_width"`
	ConfirmationHeight       int           `mapstructure:"confirmation_height"`
	ConfirmationPollInterval time.Duration `mapstructure:"confirmation_poll_interval"`

	// ConfirmationConnectTimeout bounds how long a confirmation window may wait for its websocket client.
	ConfirmationConnectTimeout time.Duration `mapstructure:"confirmation_connect_timeout"`

	AddressCacheTTL time.Duration `mapstructure:"address_cache_ttl"`
}

type Signer struct {
	Kind             string `mapstructure:"kind"`
	PrivateKey       string `mapstructure:"private_key"`
	Mnemonic         string `mapstructure:"mnemonic"`
	KeystorePath     string `mapstructure:"keystore_path"`
	KeystorePassword string `mapstructure:"keystore_password"`
	DerivationPath   string `mapstructure:"derivation_path"`
	TEEURL           string `mapstructure:"tee_url"`
	TEEAPIKey        string `mapstructure:"tee_api_key"`
	IdentityURL      string `mapstructure:"identity_url"`
}

// Auth carries a pre-issued session for headless operation.
type Auth struct {
	AccessToken   string `mapstructure:"access_token"`
	IDToken       string `mapstructure:"id_token"`
	Subject       string `mapstructure:"subject"`
	WalletAddress string `mapstructure:"wallet_address"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

type Server struct {
	Echo     EchoServer   `mapstructure:"echo"`
	Logger   LoggerServer `mapstructure:"logger"`
	Passport Passport     `mapstructure:"passport"`
	Signer   Signer       `mapstructure:"signer"`
	Auth     Auth         `mapstructure:"auth"`
	Metrics  Metrics      `mapstructure:"metrics"`
}

const (
	SignerKindLocal    = "local"
	SignerKindTEE      = "tee"
	SignerKindIdentity = "identity"

	defaultChainID            = 13371
	defaultPollAttempts       = 30
	defaultConfirmationWidth  = 480
	defaultConfirmationHeight = 720
)

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined below.
// We don't expect that ENV_VARs change while we are running our application or our tests
// (and it would be a bad thing to do anyways with parallel testing).
func DefaultServiceConfigFromEnv() Server {
	return Server{
		Echo: EchoServer{
			Debug:         util.GetEnvAsBool("SERVER_ECHO_DEBUG", false),
			ListenAddress: util.GetEnv("SERVER_ECHO_LISTEN_ADDRESS", ":8080"),
		},
		Logger: LoggerServer{
			Level:              util.GetEnv("SERVER_LOGGER_LEVEL", "info"),
			RequestLevel:       util.GetEnv("SERVER_LOGGER_REQUEST_LEVEL", "info"),
			PrettyPrintConsole: util.GetEnvAsBool("SERVER_LOGGER_PRETTY_PRINT_CONSOLE", false),
		},
		Passport: Passport{
			Domain:                     util.GetEnv("PASSPORT_DOMAIN", "https://passport.immutable.com"),
			ChainID:                    util.GetEnvAsInt64("PASSPORT_CHAIN_ID", defaultChainID),
			ChainName:                  util.GetEnv("PASSPORT_CHAIN_NAME", "Immutable zkEVM"),
			RPCURLs:                    util.GetEnvAsStringArr("PASSPORT_RPC_URLS", []string{"https://rpc.immutable.com"}),
			RelayerURL:                 util.GetEnv("PASSPORT_RELAYER_URL", "https://api.immutable.com/relayer-mr"),
			APIURL:                     util.GetEnv("PASSPORT_API_URL", "https://api.immutable.com"),
			ChainsFile:                 util.GetEnv("PASSPORT_CHAINS_FILE", ""),
			AutoLogin:                  util.GetEnvAsBool("PASSPORT_AUTO_LOGIN", true),
			ClientID:                   util.GetEnv("PASSPORT_CLIENT_ID", ""),
			PollInterval:               util.GetEnvAsDuration("PASSPORT_POLL_INTERVAL", time.Second),
			PollAttempts:               util.GetEnvAsInt("PASSPORT_POLL_ATTEMPTS", defaultPollAttempts),
			ConfirmationWidth:          util.GetEnvAsInt("PASSPORT_CONFIRMATION_WIDTH", defaultConfirmationWidth),
			ConfirmationHeight:         util.GetEnvAsInt("PASSPORT_CONFIRMATION_HEIGHT", defaultConfirmationHeight),
			ConfirmationPollInterval:   util.GetEnvAsDuration("PASSPORT_CONFIRMATION_POLL_INTERVAL", time.Second),
			ConfirmationConnectTimeout: util.GetEnvAsDuration("PASSPORT_CONFIRMATION_CONNECT_TIMEOUT", 5*time.Minute),
			AddressCacheTTL:            util.GetEnvAsDuration("PASSPORT_ADDRESS_CACHE_TTL", time.Hour),
		},
		Signer: Signer{
			Kind: util.GetEnvEnum("PASSPORT_SIGNER_KIND", SignerKindLocal,
				[]string{SignerKindLocal, SignerKindTEE, SignerKindIdentity}),
			PrivateKey:       util.GetEnv("PASSPORT_SIGNER_PRIVATE_KEY", ""),
			Mnemonic:         util.GetEnv("PASSPORT_SIGNER_MNEMONIC", ""),
			KeystorePath:     util.GetEnv("PASSPORT_SIGNER_KEYSTORE_PATH", ""),
			KeystorePassword: util.GetEnv("PASSPORT_SIGNER_KEYSTORE_PASSWORD", ""),
			DerivationPath:   util.GetEnv("PASSPORT_SIGNER_DERIVATION_PATH", "m/44'/60'/0'/0/0"),
			TEEURL:           util.GetEnv("PASSPORT_SIGNER_TEE_URL", "https://tee.express.magiclabs.com"),
			TEEAPIKey:        util.GetEnv("PASSPORT_SIGNER_TEE_API_KEY", ""),
			IdentityURL:      util.GetEnv("PASSPORT_SIGNER_IDENTITY_URL", ""),
		},
		Auth: Auth{
			AccessToken:   util.GetEnv("PASSPORT_AUTH_ACCESS_TOKEN", ""),
			IDToken:       util.GetEnv("PASSPORT_AUTH_ID_TOKEN", ""),
			Subject:       util.GetEnv("PASSPORT_AUTH_SUBJECT", ""),
			WalletAddress: util.GetEnv("PASSPORT_AUTH_WALLET_ADDRESS", ""),
		},
		Metrics: Metrics{
			Enabled: util.GetEnvAsBool("SERVER_METRICS_ENABLED", true),
		},
	}
}
