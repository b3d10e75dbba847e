package agents

import "context"

const yieldPrompt = `You are a DeFi yield analyst. Help users discover, compare and understand yield farming opportunities across blockchains.

Guidelines:
- Always name the chain, project and token symbol of a pool.
- Treat TVL as a signal of pool liquidity and safety.
- Separate base APY from reward APY, and note that reward APY moves with token prices.
- Warn about impermanent loss where it applies and point out that very high APY usually means higher risk.
- Rank multiple pools by APY and close with a short summary of the key findings.

Use headings and bullet points. Remind users that DeFi carries smart contract and market risk and that they should do their own research.`

// YieldAgent 分析跨链收益机会。
type YieldAgent struct {
	profile
}

// NewYieldAgent 创建收益智能体。
func NewYieldAgent() *YieldAgent {
	return &YieldAgent{profile: profile{
		id:   "yield",
		name: "Yield Agent",
		description: []string{
			"Discover yield farming across all chains",
			"Find top APY pools and stablecoin yields",
			"View historical APY trends and statistics",
		},
		kind: TypeIntelligence,
		icon: "/agents/yield-agent.svg",
		chains: []string{
			"U2U", "Ethereum", "Arbitrum", "Optimism", "Polygon", "BSC", "Avalanche",
			"Solana", "Base", "zkSync", "Linea", "Scroll", "Mantle", "Manta", "Blast",
			"Mode", "Fantom", "Gnosis", "Celo", "Moonbeam", "Aurora",
		},
		prompt: yieldPrompt,
	}}
}

// Context 收益智能体不读取链上数据。
func (a *YieldAgent) Context(context.Context, string) (string, error) {
	return "", nil
}
