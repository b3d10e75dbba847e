package agents

import (
	"context"
	"log/slog"
	"strings"

	"DeFi-Agent/internal/web3"
	"DeFi-Agent/pkg/logger"
)

const bridgePrompt = `You are a cross-chain bridge assistant focused on moving tokens between U2U Network and other EVM chains.

Guidelines:
- Confirm the source chain, destination chain, token and amount before describing any transfer.
- Show the expected fee and time and mention minimum and maximum amounts.
- Remind users to keep enough gas on the source chain.
- Bridge transactions are irreversible; ask users to double-check the destination address.

Use the on-chain context below to reason about the user's wallet when it is present.`

// BridgeAgent 协助跨链转移资产。
type BridgeAgent struct {
	profile
	chains ChainResolver
	log    *slog.Logger
}

// NewBridgeAgent 创建跨链桥智能体，chains 可以为 nil。
func NewBridgeAgent(chains ChainResolver) *BridgeAgent {
	return &BridgeAgent{
		profile: profile{
			id:   "bridge",
			name: "Bridge Agent",
			description: []string{
				"Bridge tokens between U2U and other chains",
				"Get bridge quotes with fees and times",
				"Execute cross-chain transfers via Owlto",
			},
			kind:   TypeStrategy,
			icon:   "/agents/bridge-agent.svg",
			chains: []string{"U2U"},
			prompt: bridgePrompt,
		},
		chains: chains,
		log:    logger.Named("agents.bridge"),
	}
}

// Context 返回钱包余额与已发送交易数。
func (a *BridgeAgent) Context(ctx context.Context, walletAddress string) (string, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return "", nil
	}
	name, client, ok := resolveChain(a.chains, StakingChain)
	if !ok {
		return "On-chain context:\n- " + chainUnavailable, nil
	}

	var b contextBuilder
	balance, err := client.Balance(ctx, walletAddress)
	switch {
	case err == nil:
		b.add("wallet %s on %s: native balance %s", walletAddress, name, web3.FormatWei(balance))
	case ctx.Err() != nil:
		return "", ctx.Err()
	default:
		a.log.Warn("查询钱包余额失败", slog.String("wallet", walletAddress), slog.Any("error", err))
		b.add("wallet %s on %s: balance unavailable", walletAddress, name)
	}

	count, err := client.TransactionCount(ctx, walletAddress)
	switch {
	case err == nil:
		b.add("transactions sent: %d", count)
	case ctx.Err() != nil:
		return "", ctx.Err()
	default:
		a.log.Warn("查询交易计数失败", slog.String("wallet", walletAddress), slog.Any("error", err))
	}
	return b.String("On-chain context:"), nil
}
