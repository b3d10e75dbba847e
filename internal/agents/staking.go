package agents

import (
	"context"
	"log/slog"
	"strings"

	"DeFi-Agent/internal/web3"
	"DeFi-Agent/pkg/logger"
)

// StakingChain 是质押智能体优先使用的链名称。
const StakingChain = "u2u"

const stakingPrompt = `You are a staking assistant for the U2U Solaris network. Help users understand validators, epochs, delegation, undelegation and reward claiming.

Guidelines:
- Use the on-chain context below when it is present, and say so when it is missing.
- Quote balances in U2U with the decimal precision shown in the context.
- Explain lock-up and withdrawal delays before suggesting an undelegation.
- Never ask for private keys; the user signs every transaction in their own wallet.

Keep answers short and actionable.`

// StakingAgent 面向 U2U Solaris 的质押助手。
type StakingAgent struct {
	profile
	chains ChainResolver
	log    *slog.Logger
}

// NewStakingAgent 创建质押智能体，chains 可以为 nil。
func NewStakingAgent(chains ChainResolver) *StakingAgent {
	return &StakingAgent{
		profile: profile{
			id:   "staking",
			name: "Staking Agent",
			description: []string{
				"Query staking information on U2U Solaris network",
				"Delegate, undelegate, claim rewards, and manage your staking",
				"Get validator information and network statistics",
			},
			kind:   TypeStrategy,
			icon:   "/sidebar/staking-agent.png",
			chains: []string{"U2U Solaris"},
			prompt: stakingPrompt,
		},
		chains: chains,
		log:    logger.Named("agents.staking"),
	}
}

// Context 返回链快照与钱包原生余额。
func (a *StakingAgent) Context(ctx context.Context, walletAddress string) (string, error) {
	name, client, ok := resolveChain(a.chains, StakingChain)
	if !ok {
		return "On-chain context:\n- " + chainUnavailable, nil
	}

	var b contextBuilder
	snapshot, err := client.FetchChainSnapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		a.log.Warn("获取链快照失败", slog.String("chain", name), slog.Any("error", err))
		b.add("chain %s: snapshot unavailable", name)
	} else {
		b.add("chain %s: chain id %s, latest block %s", name, snapshot.ChainID, snapshot.BlockNumber)
		if notes := strings.TrimSpace(snapshot.Notes); notes != "" {
			b.add("notes: %s", notes)
		}
	}

	if walletAddress = strings.TrimSpace(walletAddress); walletAddress != "" {
		balance, err := client.Balance(ctx, walletAddress)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			a.log.Warn("查询钱包余额失败", slog.String("wallet", walletAddress), slog.Any("error", err))
			b.add("wallet %s: balance unavailable", walletAddress)
		} else {
			b.add("wallet %s: native balance %s (%s wei)", walletAddress, web3.FormatWei(balance), balance.String())
		}
	}
	return b.String("On-chain context:"), nil
}
