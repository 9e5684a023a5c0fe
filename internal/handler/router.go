package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// サービス
	AuthService AuthServiceInterface
	TaskService TaskServiceInterface

	// 観測
	Logger          *slog.Logger
	RequestRecorder middleware.RequestRecorder
	Gatherer        prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → (AuthMiddleware → RateLimit(General))
//
// 認証エンドポイント（/api/auth/signup、/api/auth/login）は認証ミドルウェアの外、
// IPアドレス単位のレート制限の内側に配置する。
// /api/healthと/metricsは制限なしで公開する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効く外側のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.RequestRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	taskHandler := NewTaskHandler(deps.TaskService)

	authMw := middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder)

	// --- 認証不要のルート ---

	r.Get("/api/health", Health)

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// 認証エンドポイント（ブルートフォース対策のIP単位レート制限つき）
	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/signup", authHandler.Signup)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)

		// /me のみ認証が必要
		r.With(authMw).Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(authMw)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Put("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)

				// PATCH /api/tasks/{id}/complete - 完了状態のみの更新経路
				r.Patch("/complete", taskHandler.Toggle)
			})
		})
	})

	return r
}
