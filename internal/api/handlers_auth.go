package api

import (
	"net/http"

	"DeFi-Agent/internal/auth"
	"DeFi-Agent/pkg/dto"
)

func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, session *dto.SessionResponse, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setAuthCookie(w, session.AccessToken)
	writeJSON(w, http.StatusOK, session)
}

// subject 返回当前请求的身份，中间件保证受保护路由上一定存在。
func subject(r *http.Request) (*auth.Subject, error) {
	return auth.RequireSubject(r.Context())
}

// handleLogin godoc
// @Summary      Log in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.LoginRequest  true  "credentials"
// @Success      200   {object}  dto.SessionResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	s.writeSession(w, r, session, err)
}

// handleRegister godoc
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterRequest  true  "credentials"
// @Success      200   {object}  dto.SessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.deps.Auth.Register(r.Context(), req.Email, req.Password)
	s.writeSession(w, r, session, err)
}

// handleGuest godoc
// @Summary      Start a guest session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.SessionResponse
// @Router       /api/auth/guest [get]
func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Auth.Guest(r.Context())
	s.writeSession(w, r, session, err)
}

// handleWalletNonce godoc
// @Summary      Issue a wallet login nonce
// @Tags         auth
// @Produce      json
// @Param        walletAddress  query     string  true  "EVM address"
// @Success      200            {object}  dto.WalletNonceResponse
// @Failure      503            {object}  dto.ErrorResponse
// @Router       /api/auth/wallet/nonce [get]
func (s *Server) handleWalletNonce(w http.ResponseWriter, r *http.Request) {
	var q dto.WalletNonceQuery
	if err := queryInto(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Auth.WalletNonce(r.Context(), q.WalletAddress)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleWalletLogin godoc
// @Summary      Log in with a signed wallet nonce
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.WalletLoginRequest  true  "signature"
// @Success      200   {object}  dto.SessionResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/wallet/login [post]
func (s *Server) handleWalletLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.WalletLoginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.deps.Auth.WalletLogin(r.Context(), req)
	s.writeSession(w, r, session, err)
}

// handleSession godoc
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.CurrentSession
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/auth/session [get]
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sub, err := subject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Auth.Session(sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
