package web3

import (
	"context"
	"math/big"
	"time"
)

// ChainSnapshot represents summarized network metadata for UI/reporting.
type ChainSnapshot struct {
	ChainID     string
	BlockNumber string
	Notes       string
}

// Receipt summarises a mined transaction.
type Receipt struct {
	TxHash      string
	Status      uint64
	BlockNumber string
	GasUsed     uint64
}

// Client defines the common interface that any chain implementation must
// provide so higher layers can interact with different networks uniformly.
type Client interface {
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	Balance(ctx context.Context, address string) (*big.Int, error)
	TransactionCount(ctx context.Context, address string) (uint64, error)
	// WaitForReceipt polls until the transaction is mined or ctx is done.
	WaitForReceipt(ctx context.Context, txHash string, pollInterval time.Duration) (*Receipt, error)
	Close()
}

// FormatWei renders a wei amount as a decimal ether string with up to 6
// fractional digits.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	ether := new(big.Rat).SetFrac(wei, big.NewInt(1_000_000_000_000_000_000))
	return ether.FloatString(6)
}
