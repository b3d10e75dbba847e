package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors returned by the authentication subsystem.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing bearer token")
	ErrNonceMissing = errors.New("nonce expired or not found")
)

// UserType distinguishes the three kinds of accounts.
type UserType string

const (
	UserTypeGuest   UserType = "guest"
	UserTypeRegular UserType = "regular"
	UserTypeWallet  UserType = "wallet"
)

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeGuest, UserTypeRegular, UserTypeWallet:
		return true
	}
	return false
}

// Subject captures the information embedded in access tokens and passed to
// request handlers via context.
type Subject struct {
	ID            string
	Email         string
	Type          UserType
	WalletAddress string
}

// Clone returns a copy of the subject.
func (s *Subject) Clone() *Subject {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Claims is the JWT payload.
type Claims struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	Type          UserType `json:"type"`
	WalletAddress string   `json:"walletAddress,omitempty"`
	jwt.RegisteredClaims
}

// Subject converts the claims into a request subject.
func (c *Claims) Subject() *Subject {
	return &Subject{ID: c.ID, Email: c.Email, Type: c.Type, WalletAddress: c.WalletAddress}
}

// NonceStore keeps single-use wallet login nonces. Implementations must be
// safe for concurrent use.
type NonceStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrNonceMissing when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Take atomically reads and removes the nonce so that it can be consumed only once.
	Take(ctx context.Context, key string) (string, error)
}

// Config configures the authentication service.
type Config struct {
	Secret   string
	TokenTTL time.Duration
	NonceTTL time.Duration
	Issuer   string
}

// Entitlements describes per-user-type quotas.
type Entitlements struct {
	MaxMessagesPerDay int
}

var entitlementsByType = map[UserType]Entitlements{
	UserTypeGuest:   {MaxMessagesPerDay: 20},
	UserTypeRegular: {MaxMessagesPerDay: 50},
	UserTypeWallet:  {MaxMessagesPerDay: 100},
}

// EntitlementsFor returns the quotas of a user type. Unknown types get the
// guest quota.
func EntitlementsFor(t UserType) Entitlements {
	if ent, ok := entitlementsByType[t]; ok {
		return ent
	}
	return entitlementsByType[UserTypeGuest]
}
