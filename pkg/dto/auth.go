package dto

// WalletNonceQuery is the query of GET /api/auth/wallet/nonce.
type WalletNonceQuery struct {
	WalletAddress string `json:"walletAddress" validate:"required,eth_addr"`
}

// WalletNonceResponse carries the nonce and the exact message the wallet must sign.
type WalletNonceResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

// WalletLoginRequest is the body of POST /api/auth/wallet/login.
type WalletLoginRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,eth_addr"`
	Signature     string `json:"signature" validate:"required"`
	ReferralCode  string `json:"referralCode,omitempty" validate:"omitempty,min=3,max=50"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// SessionUser is the public view of an authenticated user.
type SessionUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Type          string `json:"type"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

// SessionResponse is returned by every login flavour.
type SessionResponse struct {
	AccessToken string      `json:"access_token"`
	User        SessionUser `json:"user"`
}

// CurrentSession is returned by GET /api/auth/session.
type CurrentSession struct {
	User SessionUser `json:"user"`
}
