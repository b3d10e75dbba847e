package ethereum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTxHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// newFakeNode serves a minimal JSON-RPC endpoint. The receipt becomes
// available after receiptAfter lookups.
func newFakeNode(t *testing.T, receiptAfter int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var lookups atomic.Int32
	receipt := map[string]any{
		"type":              "0x0",
		"status":            "0x1",
		"cumulativeGasUsed": "0x5208",
		"logsBloom":         "0x" + strings.Repeat("0", 512),
		"logs":              []any{},
		"transactionHash":   testTxHash,
		"contractAddress":   nil,
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x1",
		"blockHash":         "0x" + strings.Repeat("ab", 32),
		"blockNumber":       "0x10",
		"transactionIndex":  "0x0",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var result any
		switch req.Method {
		case "eth_chainId":
			result = "0x27"
		case "eth_blockNumber":
			result = "0x10"
		case "eth_getBalance":
			result = "0xde0b6b3a7640000"
		case "eth_getTransactionCount":
			result = "0x5"
		case "eth_getTransactionReceipt":
			if lookups.Add(1) > receiptAfter {
				result = receipt
			}
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv, &lookups
}

func TestClientReadsChainState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, _ := newFakeNode(t, 0)
	client, err := NewClient(ctx, Config{Name: "u2u", RPCURL: srv.URL, ChainID: "1", Notes: "U2U Solaris"})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	snapshot, err := client.FetchChainSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0x27", snapshot.ChainID)
	assert.Equal(t, "0x10", snapshot.BlockNumber)
	assert.Contains(t, snapshot.Notes, "expected chain id 1")

	balance, err := client.Balance(ctx, "0x52908400098527886E0F7030069857D2E4169EE7")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.String())

	count, err := client.TransactionCount(ctx, "0x52908400098527886E0F7030069857D2E4169EE7")
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	_, err = client.Balance(ctx, "not-an-address")
	assert.Error(t, err)
}

func TestWaitForReceiptPolls(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, lookups := newFakeNode(t, 2)
	client, err := NewClient(ctx, Config{RPCURL: srv.URL})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	receipt, err := client.WaitForReceipt(ctx, testTxHash, 10*time.Millisecond)
	require.NoError(t, err)
	assert.EqualValues(t, 1, receipt.Status)
	assert.Equal(t, "0x10", receipt.BlockNumber)
	assert.EqualValues(t, 21000, receipt.GasUsed)
	assert.GreaterOrEqual(t, lookups.Load(), int32(3))
}

func TestWaitForReceiptHonoursContext(t *testing.T) {
	srv, _ := newFakeNode(t, 1_000_000)
	client, err := NewClient(context.Background(), Config{RPCURL: srv.URL})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.WaitForReceipt(ctx, testTxHash, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = client.WaitForReceipt(context.Background(), "0x1234", time.Millisecond)
	assert.Error(t, err)
}

func TestClosedClientRejectsCalls(t *testing.T) {
	srv, _ := newFakeNode(t, 0)
	client, err := NewClient(context.Background(), Config{RPCURL: srv.URL})
	require.NoError(t, err)
	client.Close()

	_, err = client.FetchChainSnapshot(context.Background())
	assert.Error(t, err)
}
