package agents

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/web3"
)

const wallet = "0x52908400098527886E0F7030069857D2E4169EE7"

type stubChain struct {
	snapshotErr error
	balance     *big.Int
	balanceErr  error
	nonce       uint64
}

func (s *stubChain) FetchChainSnapshot(context.Context) (web3.ChainSnapshot, error) {
	if s.snapshotErr != nil {
		return web3.ChainSnapshot{}, s.snapshotErr
	}
	return web3.ChainSnapshot{ChainID: "0x27", BlockNumber: "0x10", Notes: "U2U Solaris"}, nil
}
func (s *stubChain) Balance(context.Context, string) (*big.Int, error) {
	return s.balance, s.balanceErr
}
func (s *stubChain) TransactionCount(context.Context, string) (uint64, error) {
	return s.nonce, nil
}
func (s *stubChain) WaitForReceipt(context.Context, string, time.Duration) (*web3.Receipt, error) {
	return nil, errors.New("not implemented")
}
func (s *stubChain) Close() {}

type stubResolver map[string]web3.Client

func (r stubResolver) Resolve(name string) (string, web3.Client, error) {
	if name == "" {
		name = "u2u"
	}
	c, ok := r[name]
	if !ok {
		return "", nil, apperrors.New(apperrors.CodeNotFoundChain, "")
	}
	return name, c, nil
}

func TestRegistryOrderAndOverwrite(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg, nil)

	infos := reg.Infos()
	require.Len(t, infos, 4)
	ids := []string{infos[0].ID, infos[1].ID, infos[2].ID, infos[3].ID}
	assert.Equal(t, []string{"yield", "research", "staking", "bridge"}, ids)
	assert.Len(t, infos[0].SupportedChains, 21)
	assert.Equal(t, "Intelligence", infos[1].Type)
	assert.Equal(t, "/sidebar/staking-agent.png", infos[2].Icon)

	reg.Register(NewYieldAgent())
	assert.Len(t, reg.All(), 4)

	assert.Nil(t, reg.Get("missing"))
	_, ok := reg.Info("missing")
	assert.False(t, ok)

	info, ok := reg.Info("bridge")
	require.True(t, ok)
	assert.Equal(t, "Bridge Agent", info.Name)
	assert.Equal(t, []string{"U2U"}, info.SupportedChains)
}

func TestStakingContextWithChain(t *testing.T) {
	chain := &stubChain{balance: big.NewInt(1_500_000_000_000_000_000)}
	agent := NewStakingAgent(stubResolver{"u2u": chain})

	out, err := agent.Context(context.Background(), wallet)
	require.NoError(t, err)
	assert.Contains(t, out, "chain id 0x27")
	assert.Contains(t, out, "native balance 1.500000")
}

func TestStakingContextDegradesOnFailures(t *testing.T) {
	chain := &stubChain{snapshotErr: errors.New("rpc down"), balanceErr: errors.New("rpc down")}
	agent := NewStakingAgent(stubResolver{"u2u": chain})

	out, err := agent.Context(context.Background(), wallet)
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot unavailable")
	assert.Contains(t, out, "balance unavailable")
}

func TestContextWithoutChains(t *testing.T) {
	out, err := NewStakingAgent(nil).Context(context.Background(), wallet)
	require.NoError(t, err)
	assert.Contains(t, out, chainUnavailable)

	out, err = NewBridgeAgent(stubResolver{}).Context(context.Background(), wallet)
	require.NoError(t, err)
	assert.Contains(t, out, chainUnavailable)
}

func TestBridgeContext(t *testing.T) {
	chain := &stubChain{balance: big.NewInt(0), nonce: 7}
	agent := NewBridgeAgent(stubResolver{"u2u": chain})

	out, err := agent.Context(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = agent.Context(context.Background(), wallet)
	require.NoError(t, err)
	assert.Contains(t, out, "transactions sent: 7")
	assert.Contains(t, out, "native balance 0.000000")
}

func TestIntelligenceAgentsHaveNoContext(t *testing.T) {
	for _, a := range []Agent{NewYieldAgent(), NewResearchAgent()} {
		out, err := a.Context(context.Background(), wallet)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.NotEmpty(t, a.SystemPrompt())
	}
}
