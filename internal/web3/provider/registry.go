package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"DeFi-Agent/internal/config"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/web3"
	"DeFi-Agent/internal/web3/ethereum"
)

// DefaultChainName 是仅配置 CHAIN_RPC_URL 时使用的链名称。
const DefaultChainName = "default"

// ChainInfo 描述注册表中的一条链。
type ChainInfo struct {
	Name        string
	ChainID     string
	Description string
}

type entry struct {
	info   ChainInfo
	client web3.Client
}

// Registry manages a set of chain clients keyed by human readable names.
type Registry struct {
	defaultChain string
	chains       map[string]entry
}

// Dialer 创建单条链的客户端，测试时可以替换。
type Dialer func(ctx context.Context, cfg ethereum.Config) (web3.Client, error)

func dialEthereum(ctx context.Context, cfg ethereum.Config) (web3.Client, error) {
	return ethereum.NewClient(ctx, cfg)
}

// NewRegistry loads chain definitions and instantiates concrete clients. An
// empty configuration yields an empty registry; agents then answer without
// on-chain context.
func NewRegistry(ctx context.Context, cfg config.Web3Config) (*Registry, error) {
	return NewRegistryWithDialer(ctx, cfg, dialEthereum)
}

// NewRegistryWithDialer 与 NewRegistry 相同，但允许注入自定义的客户端构造函数。
func NewRegistryWithDialer(ctx context.Context, cfg config.Web3Config, dial Dialer) (*Registry, error) {
	defs, err := web3.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}

	r := &Registry{chains: make(map[string]entry)}
	for _, name := range defs.Names() {
		chain := defs.Chains[name]
		client, err := dial(ctx, ethereum.Config{
			Name:    name,
			RPCURL:  chain.RPCURL,
			ChainID: chain.ChainID,
			Notes:   chain.Description,
		})
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
		}
		r.chains[name] = entry{
			info:   ChainInfo{Name: name, ChainID: chain.ChainID, Description: chain.Description},
			client: client,
		}
	}

	defaultChain := strings.TrimSpace(cfg.DefaultChain)
	if len(r.chains) == 0 && strings.TrimSpace(cfg.RPCURL) != "" {
		client, err := dial(ctx, ethereum.Config{Name: DefaultChainName, RPCURL: cfg.RPCURL, ChainID: cfg.ChainID})
		if err != nil {
			return nil, fmt.Errorf("初始化默认链失败: %w", err)
		}
		r.chains[DefaultChainName] = entry{
			info:   ChainInfo{Name: DefaultChainName, ChainID: cfg.ChainID},
			client: client,
		}
		defaultChain = DefaultChainName
	}

	if len(r.chains) == 0 {
		return r, nil
	}
	if defaultChain == "" {
		defaultChain = r.Names()[0]
	}
	if _, ok := r.chains[defaultChain]; !ok {
		r.Close()
		return nil, fmt.Errorf("默认链 %s 未在配置中找到", defaultChain)
	}
	r.defaultChain = defaultChain
	return r, nil
}

// Empty reports whether no chain is configured.
func (r *Registry) Empty() bool {
	return r == nil || len(r.chains) == 0
}

// DefaultName returns the name of the default chain, or "" when empty.
func (r *Registry) DefaultName() string {
	if r == nil {
		return ""
	}
	return r.defaultChain
}

// Resolve 根据名称返回链客户端，空名称表示默认链。
func (r *Registry) Resolve(name string) (string, web3.Client, error) {
	if r.Empty() {
		return "", nil, apperrors.New(apperrors.CodeNotFoundChain, "No chain is configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.defaultChain
	}
	e, ok := r.chains[name]
	if !ok {
		return "", nil, apperrors.New(apperrors.CodeNotFoundChain, fmt.Sprintf("Unknown chain %q", name))
	}
	return name, e.client, nil
}

// Client returns the chain client identified by name.
func (r *Registry) Client(name string) (web3.Client, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.chains[name]
	return e.client, ok
}

// Names returns the registered chain names in lexical order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.chains))
	for name := range r.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos returns static metadata for every registered chain.
func (r *Registry) Infos() []ChainInfo {
	names := r.Names()
	infos := make([]ChainInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, r.chains[name].info)
	}
	return infos
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, e := range r.chains {
		if e.client != nil {
			e.client.Close()
		}
		delete(r.chains, name)
	}
}
