package web3

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadChainDefinitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`chains:
  u2u:
    type: evm
    rpc_url: https://rpc-mainnet.u2u.xyz
    chain_id: "39"
    description: U2U Solaris mainnet
`), 0o600))

	defs, err := LoadChainDefinitions(path)
	require.NoError(t, err)
	require.Contains(t, defs.Chains, "u2u")
	assert.Equal(t, "39", defs.Chains["u2u"].ChainID)

	assert.Equal(t, ChainTypeEVM, defs.Chains["u2u"].Type)
	assert.Equal(t, []string{"u2u"}, defs.Names())

	missing, err := LoadChainDefinitions(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing.Chains)
}

func TestLoadChainDefinitionsRejectsInvalidEntries(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"solana.yaml": "chains:\n  sol:\n    type: solana\n    rpc_url: http://x\n",
		"norpc.yaml":  "chains:\n  u2u:\n    chain_id: \"39\"\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := LoadChainDefinitions(path)
		assert.Error(t, err, name)
	}
}

func TestFormatWei(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.500000", FormatWei(wei))
	assert.Equal(t, "0", FormatWei(nil))
}
