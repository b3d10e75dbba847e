package agents

import "context"

const researchPrompt = `You are a cryptocurrency research analyst. Help users research coins, read market data and reason about the broader crypto market.

Guidelines:
- Back every claim with concrete numbers such as price, market cap, volume and percentage change.
- Explain technical indicators (RSI, MACD, moving averages, Bollinger Bands) in plain language.
- Give both the bullish and the bearish case, and call out volatility and risk.
- When recommending assets, focus on a handful of candidates rather than long lists.

Use headings and bullet points and end detailed answers with a summary. Analysis is informational only; remind users to do their own research.`

// ResearchAgent 提供行情与项目研究。
type ResearchAgent struct {
	profile
}

// NewResearchAgent 创建研究智能体。
func NewResearchAgent() *ResearchAgent {
	return &ResearchAgent{profile: profile{
		id:   "research",
		name: "Research Agent",
		description: []string{
			"Get real-time cryptocurrency prices and market data",
			"Perform technical analysis with RSI, MACD, and moving averages",
			"Calculate investment scores and recommendations",
			"Access trending coins, DeFi TVL, and market news",
			"Compare cryptocurrencies and generate research reports",
		},
		kind:   TypeIntelligence,
		icon:   "/agents/research-agent.svg",
		chains: []string{"All Chains"},
		prompt: researchPrompt,
	}}
}

// Context 研究智能体不读取链上数据。
func (a *ResearchAgent) Context(context.Context, string) (string, error) {
	return "", nil
}
