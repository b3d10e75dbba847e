package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "DeFi-Agent/docs"
	"DeFi-Agent/internal/agents"
	"DeFi-Agent/internal/auth"
	"DeFi-Agent/internal/chat"
	"DeFi-Agent/internal/config"
	"DeFi-Agent/internal/document"
	"DeFi-Agent/internal/files"
	"DeFi-Agent/internal/links"
	"DeFi-Agent/internal/observability/metrics"
	"DeFi-Agent/internal/web3/provider"
	"DeFi-Agent/pkg/logger"
)

// Dependencies 聚合处理器使用的业务服务。Chains 可以为 nil。
type Dependencies struct {
	Auth      *auth.Service
	Chat      *chat.Service
	Documents *document.Service
	Links     *links.Service
	Files     *files.Service
	Agents    *agents.Registry
	Chains    *provider.Registry
}

// Server 负责暴露 REST 接口。
type Server struct {
	cfg         config.ServerConfig
	cookieName  string
	tokenMaxAge time.Duration
	deps        Dependencies
	router      chi.Router
	authLimit   *RateLimiter
	chatLimit   *RateLimiter
	log         *slog.Logger
}

// NewServer 构造 API 服务实例并注册全部路由。
func NewServer(cfg config.ServerConfig, authCfg config.AuthConfig, deps Dependencies) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		cfg:         cfg,
		cookieName:  authCfg.CookieName,
		tokenMaxAge: authCfg.TokenTTL(),
		deps:        deps,
		log:         logger.Named("api"),
	}
	s.authLimit = NewRateLimiter(cfg.AuthRequestsPerMinute, s.log, s.writeError)
	if cfg.IsProduction() {
		s.chatLimit = NewRateLimiter(cfg.ChatRequestsPerMinute, s.log, s.writeError)
	}
	s.router = s.routes()
	return s
}

// Handler 返回根路由，便于测试或嵌入其他服务。
func (s *Server) Handler() http.Handler {
	return s.router
}

// PruneLimiters 清理空闲的限流记录。
func (s *Server) PruneLimiters() int {
	removed := s.authLimit.Prune()
	if s.chatLimit != nil {
		removed += s.chatLimit.Prune()
	}
	return removed
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}).Handler)
	r.Use(metrics.Middleware)
	r.Use(s.accessLog)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.authLimit.Handler)
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
			r.Get("/guest", s.handleGuest)
			r.Get("/wallet/nonce", s.handleWalletNonce)
			r.Post("/wallet/login", s.handleWalletLogin)
		})
		r.With(s.requireAuth("auth.session")).Get("/session", s.handleSession)
	})

	r.Get("/agents", s.handleListAgents)
	r.Get("/agents/{id}", s.handleGetAgent)

	r.Route("/links", func(r chi.Router) {
		r.Get("/", s.handleListLinks)
		r.Post("/", s.handleCreateLink)
		r.Get("/{id}", s.handleGetLink)
		r.Patch("/{id}", s.handleUpdateLink)
		r.Delete("/{id}", s.handleDeleteLink)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth(""))

		r.Route("/api/chat", func(r chi.Router) {
			if s.chatLimit != nil {
				r.With(s.chatLimit.Handler).Post("/", s.handleCreateChat)
			} else {
				r.Post("/", s.handleCreateChat)
			}
			r.Delete("/", s.handleDeleteChat)
			r.Get("/{id}", s.handleGetChat)
			r.Get("/{id}/stream", s.handleResumeChat)
			r.Patch("/{id}/visibility", s.handleUpdateVisibility)
			r.Delete("/messages/{id}/trailing", s.handleDeleteTrailing)
		})

		r.Get("/api/history", s.handleHistory)
		r.Delete("/api/history", s.handleDeleteHistory)

		r.Get("/api/vote", s.handleGetVotes)
		r.Patch("/api/vote", s.handleVote)

		r.Get("/api/document", s.handleGetDocument)
		r.Post("/api/document", s.handleSaveDocument)
		r.Delete("/api/document", s.handleDeleteDocument)
		r.Get("/api/suggestions", s.handleSuggestions)

		r.Post("/api/files/upload", s.handleUpload)

		r.Get("/api/chains", s.handleChains)
		r.Get("/api/wallet/balance", s.handleBalance)
		r.Get("/api/wallet/receipt", s.handleReceipt)
	})
	return r
}

func (s *Server) requireAuth(event string) func(http.Handler) http.Handler {
	return s.deps.Auth.Middleware(auth.MiddlewareConfig{
		CookieName: s.cookieName,
		AuditEvent: event,
		OnError:    s.writeError,
	})
}

// accessLog 记录每个请求的状态与耗时。
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Info("http_request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("remote", r.RemoteAddr),
		)
	})
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API 服务已启动", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("API 服务关闭超时", slog.Any("error", err))
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleHealth godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
