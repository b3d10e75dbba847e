package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"DeFi-Agent/internal/web3"
)

const defaultPollInterval = 2 * time.Second

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name   string
	RPCURL string
	// ChainID is the expected chain id in decimal; a mismatch is reported in
	// the snapshot notes.
	ChainID string
	Notes   string
}

// backend mirrors the subset of ethclient methods used by the client.
type backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
}

// Client implements the web3.Client interface for EVM compatible chains.
type Client struct {
	name      string
	notes     string
	expected  string
	rpcClient *gethrpc.Client
	eth       backend
	mu        sync.Mutex
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}

	return &Client{
		name:      cfg.Name,
		notes:     cfg.Notes,
		expected:  strings.TrimSpace(cfg.ChainID),
		rpcClient: rpcClient,
		eth:       ethclient.NewClient(rpcClient),
	}, nil
}

// Name returns the chain name the client was registered under.
func (c *Client) Name() string {
	return c.name
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
	c.rpcClient = nil
	c.eth = nil
}

func (c *Client) backend() (backend, error) {
	if c == nil {
		return nil, errors.New("未初始化的以太坊客户端")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth == nil {
		return nil, errors.New("以太坊客户端已关闭")
	}
	return c.eth, nil
}

// FetchChainSnapshot gathers lightweight metadata from the chain.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	eth, err := c.backend()
	if err != nil {
		return web3.ChainSnapshot{}, err
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	blockNumber, err := eth.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	notes := c.notes
	if c.expected != "" && c.expected != chainID.String() {
		notes = strings.TrimSpace(notes + fmt.Sprintf(" (expected chain id %s, node reports %s)", c.expected, chainID.String()))
	}
	return web3.ChainSnapshot{
		ChainID:     toHexBig(chainID),
		BlockNumber: fmt.Sprintf("0x%x", blockNumber),
		Notes:       notes,
	}, nil
}

// Balance returns the latest native balance of address in wei.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	eth, err := c.backend()
	if err != nil {
		return nil, err
	}
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	balance, err := eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	return balance, nil
}

// TransactionCount returns the number of transactions sent from address.
func (c *Client) TransactionCount(ctx context.Context, address string) (uint64, error) {
	eth, err := c.backend()
	if err != nil {
		return 0, err
	}
	addr, err := parseAddress(address)
	if err != nil {
		return 0, err
	}
	nonce, err := eth.NonceAt(ctx, addr, nil)
	if err != nil {
		return 0, fmt.Errorf("查询交易计数失败: %w", err)
	}
	return nonce, nil
}

// WaitForReceipt polls eth_getTransactionReceipt until the transaction is
// mined or ctx is done.
func (c *Client) WaitForReceipt(ctx context.Context, txHash string, pollInterval time.Duration) (*web3.Receipt, error) {
	eth, err := c.backend()
	if err != nil {
		return nil, err
	}
	hash := strings.TrimSpace(txHash)
	if len(common.FromHex(hash)) != common.HashLength {
		return nil, fmt.Errorf("无效的交易哈希: %s", txHash)
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := eth.TransactionReceipt(ctx, common.HexToHash(hash))
		switch {
		case err == nil && receipt != nil:
			return toReceipt(receipt), nil
		case err != nil && !errors.Is(err, gethcore.NotFound):
			return nil, fmt.Errorf("查询交易回执失败: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func toReceipt(r *coretypes.Receipt) *web3.Receipt {
	return &web3.Receipt{
		TxHash:      r.TxHash.Hex(),
		Status:      r.Status,
		BlockNumber: toHexBig(r.BlockNumber),
		GasUsed:     r.GasUsed,
	}
}

func parseAddress(address string) (common.Address, error) {
	addr := strings.TrimSpace(address)
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("无效的地址: %s", address)
	}
	return common.HexToAddress(addr), nil
}

func toHexBig(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return "0x" + n.Text(16)
}

var _ web3.Client = (*Client)(nil)
