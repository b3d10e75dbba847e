package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aidarkhanov/nanoid/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
	"DeFi-Agent/pkg/logger"
)

const (
	defaultTokenTTL = 30 * 24 * time.Hour
	defaultNonceTTL = 5 * time.Minute
)

// Service 负责账户登录、令牌签发与校验。
type Service struct {
	users    store.UserRepository
	nonces   NonceStore
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	nonceTTL time.Duration
	audit    *slog.Logger
	log      *slog.Logger
	now      func() time.Time
}

// NewService 构造身份认证服务实例。nonces 为 nil 时钱包登录不可用。
func NewService(cfg Config, users store.UserRepository, nonces NonceStore) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth service requires a user repository")
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth secret must be configured")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.NonceTTL <= 0 {
		cfg.NonceTTL = defaultNonceTTL
	}
	return &Service{
		users:    users,
		nonces:   nonces,
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		tokenTTL: cfg.TokenTTL,
		nonceTTL: cfg.NonceTTL,
		audit:    logger.Audit(),
		log:      logger.Named("auth"),
		now:      time.Now,
	}, nil
}

// WalletEnabled 报告是否配置了 nonce 存储。
func (s *Service) WalletEnabled() bool {
	return s != nil && s.nonces != nil
}

// Login 校验邮箱与口令。
func (s *Service) Login(ctx context.Context, email, password string) (*dto.SessionResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestDB, err, "Failed to get user by email")
	}
	if user == nil {
		dummyCompare(password)
		return nil, apperrors.New(apperrors.CodeUnauthorizedAuth, "Invalid credentials")
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, apperrors.New(apperrors.CodeUnauthorizedAuth, "Invalid credentials")
	}
	return s.issue(userSubject(user, UserTypeRegular))
}

// Register 创建邮箱账户并直接登录。
func (s *Service) Register(ctx context.Context, email, password string) (*dto.SessionResponse, error) {
	email = strings.TrimSpace(email)
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestDB, err, "Failed to get user by email")
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.CodeBadRequestAuth, "User already exists")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &store.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: s.now()}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestDB, err, "Failed to create user")
	}
	s.log.Info("user registered", slog.String("user_id", user.ID))
	return s.issue(userSubject(user, UserTypeRegular))
}

// Guest 创建一个访客账户。
func (s *Service) Guest(ctx context.Context) (*dto.SessionResponse, error) {
	hash, err := randomPasswordHash()
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        "guest-" + strconv.FormatInt(now.UnixMilli(), 10),
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestDB, err, "Failed to create guest user")
	}
	return s.issue(userSubject(user, UserTypeGuest))
}

// Session 返回当前登录用户。
func (s *Service) Session(subject *Subject) (*dto.CurrentSession, error) {
	if subject == nil {
		return nil, apperrors.New(apperrors.CodeUnauthorizedAuth, "")
	}
	return &dto.CurrentSession{User: sessionUser(subject)}, nil
}

// WalletNonce 为钱包地址生成一次性 nonce。
func (s *Service) WalletNonce(ctx context.Context, walletAddress string) (*dto.WalletNonceResponse, error) {
	if !s.WalletEnabled() {
		return nil, apperrors.New(apperrors.CodeOfflineAuth, "Nonce service is not available")
	}
	nonce, err := nanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	if err := s.nonces.Set(ctx, NonceKey(walletAddress), nonce, s.nonceTTL); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeOfflineAuth, err, "")
	}
	return &dto.WalletNonceResponse{Nonce: nonce, Message: NonceMessage(walletAddress, nonce)}, nil
}

// WalletLogin 校验 nonce 签名，必要时创建钱包用户。
func (s *Service) WalletLogin(ctx context.Context, req dto.WalletLoginRequest) (*dto.SessionResponse, error) {
	if !s.WalletEnabled() {
		return nil, apperrors.New(apperrors.CodeOfflineAuth, "Nonce service is not available")
	}
	key := NonceKey(req.WalletAddress)
	nonce, err := s.nonces.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNonceMissing) {
			return nil, apperrors.New(apperrors.CodeBadRequestAuth, "Nonce expired or not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeOfflineAuth, err, "")
	}
	if !VerifySignature(req.WalletAddress, NonceMessage(req.WalletAddress, nonce), req.Signature) {
		s.audit.Warn("wallet_login_denied", slog.String("wallet", strings.ToLower(req.WalletAddress)))
		return nil, apperrors.New(apperrors.CodeUnauthorizedAuth, "Invalid signature")
	}
	// 并发请求只有一个能取走 nonce，其余按过期处理。
	taken, err := s.nonces.Take(ctx, key)
	if err != nil && !errors.Is(err, ErrNonceMissing) {
		return nil, apperrors.Wrap(apperrors.CodeOfflineAuth, err, "")
	}
	if err != nil || taken != nonce {
		return nil, apperrors.New(apperrors.CodeBadRequestAuth, "Nonce expired or not found")
	}

	user, err := s.users.GetUserByWallet(ctx, req.WalletAddress)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestDB, err, "Failed to get user by wallet")
	}
	if user == nil {
		hash, err := randomPasswordHash()
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		address := strings.ToLower(req.WalletAddress)
		user = &store.User{
			ID:            uuid.NewString(),
			Email:         address,
			PasswordHash:  hash,
			WalletAddress: address,
			ReferralCode:  req.ReferralCode,
			CreatedAt:     s.now(),
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeBadRequestDB, err, "Failed to create wallet user")
		}
		s.log.Info("wallet user created", slog.String("user_id", user.ID))
	} else if user.ReferralCode == "" && req.ReferralCode != "" {
		if err := s.users.SetReferralCode(ctx, user.ID, req.ReferralCode); err != nil {
			s.log.Warn("store referral code failed", slog.Any("error", err))
		}
	}
	return s.issue(userSubject(user, UserTypeWallet))
}

// VerifyToken 校验 HS256 访问令牌。
func (s *Service) VerifyToken(token string) (*Subject, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || !claims.Type.Valid() {
		return nil, ErrInvalidToken
	}
	return claims.Subject(), nil
}

// IssueToken 为主体签发访问令牌。
func (s *Service) IssueToken(subject *Subject) (string, error) {
	now := s.now()
	claims := &Claims{
		ID:            subject.ID,
		Email:         subject.Email,
		Type:          subject.Type,
		WalletAddress: subject.WalletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// TokenTTL 返回令牌有效期，用于设置 Cookie。
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

func (s *Service) issue(subject *Subject) (*dto.SessionResponse, error) {
	token, err := s.IssueToken(subject)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	s.audit.Info("session_issued",
		slog.String("user", subject.ID),
		slog.String("type", string(subject.Type)),
	)
	return &dto.SessionResponse{AccessToken: token, User: sessionUser(subject)}, nil
}

func userSubject(user *store.User, fallback UserType) *Subject {
	typ := fallback
	if user.WalletAddress != "" {
		typ = UserTypeWallet
	} else if strings.HasPrefix(user.Email, "guest-") {
		typ = UserTypeGuest
	}
	return &Subject{ID: user.ID, Email: user.Email, Type: typ, WalletAddress: user.WalletAddress}
}

func sessionUser(subject *Subject) dto.SessionUser {
	return dto.SessionUser{
		ID:            subject.ID,
		Email:         subject.Email,
		Type:          string(subject.Type),
		WalletAddress: subject.WalletAddress,
	}
}
