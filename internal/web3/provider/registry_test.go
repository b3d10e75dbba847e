package provider

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeFi-Agent/internal/config"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/web3"
	"DeFi-Agent/internal/web3/ethereum"
)

type stubClient struct {
	cfg    ethereum.Config
	closed bool
}

func (s *stubClient) FetchChainSnapshot(context.Context) (web3.ChainSnapshot, error) {
	return web3.ChainSnapshot{ChainID: "0x1"}, nil
}
func (s *stubClient) Balance(context.Context, string) (*big.Int, error) { return big.NewInt(0), nil }
func (s *stubClient) TransactionCount(context.Context, string) (uint64, error) {
	return 0, nil
}
func (s *stubClient) WaitForReceipt(context.Context, string, time.Duration) (*web3.Receipt, error) {
	return &web3.Receipt{}, nil
}
func (s *stubClient) Close() { s.closed = true }

func stubDialer(created *[]*stubClient) Dialer {
	return func(_ context.Context, cfg ethereum.Config) (web3.Client, error) {
		c := &stubClient{cfg: cfg}
		*created = append(*created, c)
		return c, nil
	}
}

func TestRegistryEmptyWithoutConfiguration(t *testing.T) {
	var created []*stubClient
	reg, err := NewRegistryWithDialer(context.Background(), config.Web3Config{}, stubDialer(&created))
	require.NoError(t, err)
	assert.True(t, reg.Empty())
	assert.Empty(t, created)

	_, _, err = reg.Resolve("")
	assert.Equal(t, apperrors.CodeNotFoundChain, apperrors.CodeOf(err))
}

func TestRegistryFallsBackToRPCURL(t *testing.T) {
	var created []*stubClient
	reg, err := NewRegistryWithDialer(context.Background(), config.Web3Config{
		RPCURL:  "http://localhost:8545",
		ChainID: "39",
	}, stubDialer(&created))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "39", created[0].cfg.ChainID)

	name, client, err := reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultChainName, name)
	assert.Same(t, created[0], client)
}

func TestRegistryLoadsChainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`chains:
  u2u:
    rpc_url: https://rpc-mainnet.u2u.xyz
    chain_id: "39"
    description: U2U Solaris
  ethereum:
    rpc_url: https://eth.llamarpc.com
    chain_id: "1"
`), 0o600))

	var created []*stubClient
	reg, err := NewRegistryWithDialer(context.Background(), config.Web3Config{
		ChainConfig:  path,
		DefaultChain: "u2u",
	}, stubDialer(&created))
	require.NoError(t, err)

	assert.Equal(t, []string{"ethereum", "u2u"}, reg.Names())
	assert.Equal(t, "u2u", reg.DefaultName())
	infos := reg.Infos()
	require.Len(t, infos, 2)
	assert.Equal(t, "U2U Solaris", infos[1].Description)

	name, _, err := reg.Resolve("ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", name)

	_, _, err = reg.Resolve("solana")
	assert.Equal(t, apperrors.CodeNotFoundChain, apperrors.CodeOf(err))

	reg.Close()
	for _, c := range created {
		assert.True(t, c.closed)
	}
}

func TestRegistryRejectsUnknownDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chains:\n  u2u:\n    rpc_url: http://x\n"), 0o600))

	var created []*stubClient
	_, err := NewRegistryWithDialer(context.Background(), config.Web3Config{
		ChainConfig:  path,
		DefaultChain: "base",
	}, stubDialer(&created))
	require.Error(t, err)
	require.Len(t, created, 1)
	assert.True(t, created[0].closed)
}
