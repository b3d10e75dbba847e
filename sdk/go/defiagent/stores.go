package defiagent

import "DeFi-Agent/pkg/dto"

// Storage keys used by the persisted stores.
const (
	WalletStorageKey = "wallet-storage"
	AuthStorageKey   = "auth-storage"
)

// WalletState is the wallet connection held by a client.
type WalletState struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account"`
	Signing   bool   `json:"signing,omitempty"`
}

// WalletStore persists the wallet connection. Signing is never written.
type WalletStore struct {
	p *Persisted[WalletState]
}

// NewWalletStore loads the wallet store from kv.
func NewWalletStore(kv KV) (*WalletStore, error) {
	p, err := NewPersisted(kv, WalletStorageKey, WalletState{}, func(s WalletState) WalletState {
		return WalletState{Connected: s.Connected, Account: s.Account}
	})
	if err != nil {
		return nil, err
	}
	return &WalletStore{p: p}, nil
}

// State returns the current wallet state.
func (w *WalletStore) State() WalletState { return w.p.Get() }

// SetSigning marks whether a signature request is in flight.
func (w *WalletStore) SetSigning(signing bool) error {
	return w.p.Update(func(s *WalletState) { s.Signing = signing })
}

// SetWalletState records a connected or disconnected account.
func (w *WalletStore) SetWalletState(connected bool, account string) error {
	return w.p.Update(func(s *WalletState) {
		s.Connected = connected
		s.Account = account
	})
}

// Reset disconnects the wallet and clears the persisted copy.
func (w *WalletStore) Reset() error {
	return w.p.Clear(WalletState{})
}

// AuthState is the session held by a client.
type AuthState struct {
	IsAuthenticated bool             `json:"isAuthenticated"`
	AccessToken     string           `json:"accessToken"`
	User            *dto.SessionUser `json:"user"`
	IsLoading       bool             `json:"isLoading,omitempty"`
}

// AuthStore persists the session. IsLoading is never written.
type AuthStore struct {
	p *Persisted[AuthState]
}

// NewAuthStore loads the auth store from kv.
func NewAuthStore(kv KV) (*AuthStore, error) {
	p, err := NewPersisted(kv, AuthStorageKey, AuthState{}, func(s AuthState) AuthState {
		s.IsLoading = false
		return s
	})
	if err != nil {
		return nil, err
	}
	return &AuthStore{p: p}, nil
}

// State returns the current session state.
func (a *AuthStore) State() AuthState { return a.p.Get() }

// SetLoading marks a login as in flight.
func (a *AuthStore) SetLoading(loading bool) error {
	return a.p.Update(func(s *AuthState) { s.IsLoading = loading })
}

// SetSession records a successful login.
func (a *AuthStore) SetSession(session *dto.SessionResponse) error {
	return a.p.Update(func(s *AuthState) {
		user := session.User
		s.IsAuthenticated = true
		s.AccessToken = session.AccessToken
		s.User = &user
		s.IsLoading = false
	})
}

// Logout clears the session.
func (a *AuthStore) Logout() error {
	return a.p.Clear(AuthState{})
}
