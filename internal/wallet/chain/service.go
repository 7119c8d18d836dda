package chain

import (
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrChainNotFound      = errors.New("chain not found")
	ErrChainAlreadyExists = errors.New("chain already registered")
)

// service 实现 Service 接口
type service struct {
	mu     sync.RWMutex
	chains map[int64]Config
}

// NewService 创建链配置服务
//
//nolint:ireturn
func NewService(chains ...Config) (Service, error) {
	s := &service{chains: make(map[int64]Config, len(chains))}

	for _, c := range chains {
		if err := s.AddChain(c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// GetChain 根据 chain_id 查询链配置
func (s *service) GetChain(chainID int64) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chains[chainID]
	if !ok {
		return Config{}, errors.Wrapf(ErrChainNotFound, "chain %d", chainID)
	}

	return c, nil
}

// ListChains 查询所有链配置
func (s *service) ListChains() []Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Config, 0, len(s.chains))
	for _, c := range s.chains {
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ChainID < result[j].ChainID })

	return result
}

// AddChain 注册新链
func (s *service) AddChain(cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chains[cfg.ChainID]; ok {
		return errors.Wrapf(ErrChainAlreadyExists, "chain %d", cfg.ChainID)
	}

	cfg.RPCURLs = append([]string(nil), cfg.RPCURLs...)
	s.chains[cfg.ChainID] = cfg

	return nil
}

// Validate 检查链配置是否完整
func Validate(cfg Config) error {
	if cfg.ChainID <= 0 {
		return errors.Errorf("invalid chain id %d", cfg.ChainID)
	}

	if len(cfg.RPCURLs) == 0 {
		return errors.Errorf("chain %d: at least one RPC URL is required", cfg.ChainID)
	}

	for _, raw := range append(append([]string{}, cfg.RPCURLs...), cfg.RelayerURL, cfg.APIURL) {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Errorf("chain %d: invalid URL %q", cfg.ChainID, raw)
		}
	}

	return nil
}

// ParseRPCURLs 解析 RPC URL（支持多个，逗号分隔）
func ParseRPCURLs(rpcURL string) []string {
	if rpcURL == "" {
		return nil
	}

	urls := strings.Split(rpcURL, ",")
	result := make([]string, 0, len(urls))

	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u != "" {
			result = append(result, u)
		}
	}

	return result
}
