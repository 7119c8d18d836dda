package chain

import (
	"github.com/BurntSushi/toml"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/pkg/errors"
)

type registryFile struct {
	Chains []fileChain `toml:"chains"`
}

type fileChain struct {
	ChainID    int64  `toml:"chain_id"`
	Name       string `toml:"name"`
	RPCURL     string `toml:"rpc_url"`
	RelayerURL string `toml:"relayer_url"`
	APIURL     string `toml:"api_url"`
}

// LoadFile 从 TOML 文件读取链列表
//
//	[[chains]]
//	chain_id = 13473
//	name = "Immutable zkEVM Testnet"
//	rpc_url = "https://rpc.testnet.immutable.com, https://rpc-backup.testnet.immutable.com"
//	relayer_url = "https://api.sandbox.immutable.com/relayer-mr"
//	api_url = "https://api.sandbox.immutable.com"
func LoadFile(path string) ([]Config, error) {
	var file registryFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to decode chain registry %s", path)
	}

	chains := make([]Config, 0, len(file.Chains))
	for _, c := range file.Chains {
		chains = append(chains, Config{
			ChainID:    c.ChainID,
			Name:       c.Name,
			RPCURLs:    ParseRPCURLs(c.RPCURL),
			RelayerURL: c.RelayerURL,
			APIURL:     c.APIURL,
		})
	}

	return chains, nil
}

// FromPassport 由服务配置生成默认链
func FromPassport(cfg config.Passport) Config {
	return Config{
		ChainID:    cfg.ChainID,
		Name:       cfg.ChainName,
		RPCURLs:    append([]string(nil), cfg.RPCURLs...),
		RelayerURL: cfg.RelayerURL,
		APIURL:     cfg.APIURL,
	}
}

// NewServiceFromConfig 注册默认链以及链配置文件中的其他链
//
//nolint:ireturn
func NewServiceFromConfig(cfg config.Passport) (Service, error) {
	chains := []Config{FromPassport(cfg)}

	if cfg.ChainsFile != "" {
		fromFile, err := LoadFile(cfg.ChainsFile)
		if err != nil {
			return nil, err
		}

		for _, c := range fromFile {
			if c.ChainID == cfg.ChainID {
				continue
			}
			chains = append(chains, c)
		}
	}

	return NewService(chains...)
}
