package dto

// Agent types.
const (
	AgentTypeStrategy     = "Strategy"
	AgentTypeIntelligence = "Intelligence"
)

// AgentParams validates GET /agents/{id}.
type AgentParams struct {
	ID string `json:"id" validate:"required,identifier"`
}

// Agent is the public description of a registered agent.
type Agent struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     []string `json:"description"`
	Type            string   `json:"type"`
	Icon            string   `json:"icon"`
	SupportedChains []string `json:"supportedChains"`
}

// ChainInfo describes a configured chain and its latest snapshot.
type ChainInfo struct {
	Name        string `json:"name"`
	ChainID     string `json:"chainId,omitempty"`
	BlockNumber string `json:"blockNumber,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BalanceQuery is the query of GET /api/wallet/balance.
type BalanceQuery struct {
	WalletAddress string `json:"walletAddress" validate:"required,eth_addr"`
	Chain         string `json:"chain"`
}

// Balance is the native balance of an address in wei.
type Balance struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
	Balance string `json:"balance"`
}

// ReceiptQuery is the query of GET /api/wallet/receipt.
type ReceiptQuery struct {
	Hash  string `json:"hash" validate:"required,len=66,startswith=0x,hexadecimal"`
	Chain string `json:"chain"`
}

// Receipt summarises a mined transaction.
type Receipt struct {
	TxHash      string `json:"txHash"`
	Status      uint64 `json:"status"`
	BlockNumber string `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
}
