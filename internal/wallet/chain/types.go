package chain

import (
	"fmt"
	"math/big"
)

// Config 描述一条已注册的链，注册后不可变
type Config struct {
	ChainID    int64    `toml:"chain_id"`
	Name       string   `toml:"name"`
	RPCURLs    []string `toml:"rpc_urls"`
	RelayerURL string   `toml:"relayer_url"`
	APIURL     string   `toml:"api_url"`
}

// BigChainID 返回 *big.Int 形式的 chain id
func (c Config) BigChainID() *big.Int {
	return big.NewInt(c.ChainID)
}

// EIP155 returns the CAIP-2 identifier used by the relayer and guardian, e.g. "eip155:13371".
func (c Config) EIP155() string {
	return EIP155(c.ChainID)
}

func EIP155(chainID int64) string {
	return fmt.Sprintf("eip155:%d", chainID)
}

// Service 定义链配置服务接口
type Service interface {
	// GetChain 根据 chain_id 查询链配置
	GetChain(chainID int64) (Config, error)

	// ListChains 查询所有链配置，按 chain_id 升序
	ListChains() []Config

	// AddChain 注册新链；已存在的 chain_id 不会被覆盖
	AddChain(cfg Config) error
}
