// Package ethrpc 封装链 RPC 传输，支持多个 URL 和故障转移
package ethrpc

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Client 封装以太坊 RPC 客户端，支持多个 URL 和故障转移
type Client struct {
	urls    []string
	clients []*gethrpc.Client
	mu      sync.RWMutex
	current int // 当前使用的客户端索引
}

// Dial 创建新的 RPC 客户端
func Dial(ctx context.Context, urls []string) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	clients := make([]*gethrpc.Client, 0, len(urls))
	for _, url := range urls {
		client, err := gethrpc.DialContext(ctx, url)
		if err != nil {
			log.Warn().
				Str("url", url).
				Err(err).
				Msg("Failed to connect to RPC node, will retry on use")
			// 继续尝试其他 URL，不立即失败
			clients = append(clients, nil)
			continue
		}
		clients = append(clients, client)
	}

	if allClientsNil(clients) {
		return nil, errors.New("failed to connect to any RPC node")
	}

	return &Client{
		urls:    urls,
		clients: clients,
	}, nil
}

// allClientsNil 检查所有客户端是否都是 nil
func allClientsNil(clients []*gethrpc.Client) bool {
	for _, client := range clients {
		if client != nil {
			return false
		}
	}
	return true
}

// Close 关闭所有客户端连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, client := range c.clients {
		if client != nil {
			client.Close()
		}
	}
}

// CallContext performs a raw JSON-RPC call. Errors returned by the node itself are final; transport errors
// move on to the next URL.
func (c *Client) CallContext(ctx context.Context, result any, method string, args ...any) error {
	var lastErr error

	for attempt := 0; attempt < len(c.urls); attempt++ {
		idx, client, err := c.getClient(ctx, attempt)
		if err != nil {
			lastErr = err
			continue
		}

		err = client.CallContext(ctx, result, method, args...)
		if err == nil || isNodeError(err) || ctx.Err() != nil {
			return err
		}

		log.Warn().
			Str("url", c.urls[idx]).
			Str("method", method).
			Err(err).
			Msg("RPC call failed, trying next node")
		lastErr = err
	}

	return errors.Wrap(lastErr, "all RPC clients are unavailable")
}

// Passthrough forwards a read-only request and returns the raw result.
func (c *Client) Passthrough(ctx context.Context, method string, params []json.RawMessage) (json.RawMessage, error) {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}

	var result json.RawMessage
	if err := c.CallContext(ctx, &result, method, args...); err != nil {
		return nil, err
	}

	return result, nil
}

// CallContract executes a read-only call; it satisfies ethereum.ContractCaller.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	block := "latest"
	if blockNumber != nil {
		block = hexutil.EncodeBig(blockNumber)
	}

	var result hexutil.Bytes
	if err := c.CallContext(ctx, &result, "eth_call", toCallArg(msg), block); err != nil {
		return nil, err
	}

	return result, nil
}

// CodeAt returns the contract code at account; it satisfies ethereum.ContractCaller.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	block := "latest"
	if blockNumber != nil {
		block = hexutil.EncodeBig(blockNumber)
	}

	var result hexutil.Bytes
	if err := c.CallContext(ctx, &result, "eth_getCode", account, block); err != nil {
		return nil, err
	}

	return result, nil
}

// ChainID 获取链 ID
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return nil, errors.Wrap(err, "failed to get chain ID")
	}

	return (*big.Int)(&result), nil
}

// EthClient returns a typed client over the currently selected node.
func (c *Client) EthClient(ctx context.Context) (*ethclient.Client, error) {
	_, client, err := c.getClient(ctx, 0)
	if err != nil {
		return nil, err
	}

	return ethclient.NewClient(client), nil
}

// getClient 获取第 offset 个候选客户端，必要时重新连接
func (c *Client) getClient(ctx context.Context, offset int) (int, *gethrpc.Client, error) {
	c.mu.RLock()
	idx := (c.current + offset) % len(c.clients)
	client := c.clients[idx]
	c.mu.RUnlock()

	if client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.clients[idx] == nil {
			dialed, err := gethrpc.DialContext(ctx, c.urls[idx])
			if err != nil {
				return idx, nil, errors.Wrapf(err, "failed to dial %s", c.urls[idx])
			}
			c.clients[idx] = dialed
		}
		client = c.clients[idx]
		c.current = idx

		return idx, client, nil
	}

	if offset != 0 {
		c.mu.Lock()
		c.current = idx
		c.mu.Unlock()
	}

	return idx, client, nil
}

// isNodeError reports whether err was produced by the node rather than by the transport.
func isNodeError(err error) bool {
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return true
	}

	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode < 500
	}

	return false
}

func toCallArg(msg ethereum.CallMsg) map[string]any {
	arg := map[string]any{
		"from": msg.From,
		"to":   msg.To,
	}
	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}

	return arg
}
