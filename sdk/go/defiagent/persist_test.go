package defiagent

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeFi-Agent/pkg/dto"
)

func TestWalletStorePersistsOnlyConnection(t *testing.T) {
	kv := NewMemoryKV()
	store, err := NewWalletStore(kv)
	require.NoError(t, err)

	require.NoError(t, store.SetWalletState(true, "0xabc"))
	require.NoError(t, store.SetSigning(true))
	assert.True(t, store.State().Signing)

	raw, ok, err := kv.Get(WalletStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"connected":true,"account":"0xabc"}`, string(raw))

	reloaded, err := NewWalletStore(kv)
	require.NoError(t, err)
	assert.Equal(t, WalletState{Connected: true, Account: "0xabc"}, reloaded.State())

	require.NoError(t, reloaded.Reset())
	_, ok, _ = kv.Get(WalletStorageKey)
	assert.False(t, ok)
	assert.Equal(t, WalletState{}, reloaded.State())
}

func TestWalletStoreDropsStaleSigningOnLoad(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(WalletStorageKey, []byte(`{"connected":true,"account":"0x1","signing":true}`)))
	require.NoError(t, kv.Set(AuthStorageKey, []byte(`{"isAuthenticated":true,"accessToken":"t","isLoading":true}`)))

	wallet, err := NewWalletStore(kv)
	require.NoError(t, err)
	assert.Equal(t, WalletState{Connected: true, Account: "0x1"}, wallet.State())

	auth, err := NewAuthStore(kv)
	require.NoError(t, err)
	assert.True(t, auth.State().IsAuthenticated)
	assert.False(t, auth.State().IsLoading)
}

func TestAuthStoreOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "client.json")
	store, err := NewAuthStore(NewFileKV(path))
	require.NoError(t, err)

	require.NoError(t, store.SetLoading(true))
	require.NoError(t, store.SetSession(&dto.SessionResponse{AccessToken: "tok", User: dto.SessionUser{ID: "u1"}}))

	wallet, err := NewWalletStore(NewFileKV(path))
	require.NoError(t, err)
	require.NoError(t, wallet.SetWalletState(true, "0xdef"))

	reloaded, err := NewAuthStore(NewFileKV(path))
	require.NoError(t, err)
	state := reloaded.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, "tok", state.AccessToken)
	require.NotNil(t, state.User)
	assert.Equal(t, "u1", state.User.ID)
	assert.False(t, state.IsLoading)

	require.NoError(t, reloaded.Logout())
	again, err := NewAuthStore(NewFileKV(path))
	require.NoError(t, err)
	assert.False(t, again.State().IsAuthenticated)

	walletAgain, err := NewWalletStore(NewFileKV(path))
	require.NoError(t, err)
	assert.Equal(t, "0xdef", walletAgain.State().Account)
}

func TestThreadFromChat(t *testing.T) {
	agent := "staking"
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	thread := ThreadFromChat(dto.Chat{ID: "c1", Title: "Stake", CreatedAt: created, AgentID: &agent, Visibility: "private"},
		[]dto.UIMessage{{ID: "m1"}, {ID: "m2"}})

	assert.Equal(t, "c1", thread.ID)
	assert.Equal(t, ThreadActive, thread.Status)
	assert.Equal(t, "staking", thread.Metadata.AgentID)
	assert.Equal(t, 2, thread.Metadata.MessageCount)
	assert.Equal(t, created, thread.UpdatedAt)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:3000")
	t.Setenv("CHAIN_ID", "2484")
	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.APIBaseURL)
	assert.Equal(t, "2484", cfg.ChainID)
}
