package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/middleware"
	"github.com/rioux/courtspot/internal/nav"
	"github.com/rioux/courtspot/internal/session"
	"github.com/rioux/courtspot/internal/store"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Session    *session.Store
	Authorizer *authz.Authorizer
	Guard      *nav.Guard

	Locations *store.LocationStore
	Comments  *store.CommentStore
	Reports   *store.ReportStore

	AuthConfig        AuthHandlerConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MetricsHandler    http.Handler
	Logger            *slog.Logger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → （認証グループ: Auth → RateLimit(General)）
//
// 認証ルート（/auth/*）と公開読み取りルートはミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.Session, deps.AuthConfig, deps.Logger)
	locationHandler := NewLocationHandler(deps.Locations)
	commentHandler := NewCommentHandler(deps.Comments)
	reportHandler := NewReportHandler(deps.Reports)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 公開読み取りルート
	r.Get("/api/locations", locationHandler.List)
	r.Get("/api/locations/{id}/comments", commentHandler.List)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Session, deps.Guard))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 施設管理
		r.Get("/api/locations/my", locationHandler.ListMine)
		r.Post("/api/locations", locationHandler.Create)
		r.Patch("/api/locations/{id}", locationHandler.Update)
		r.Delete("/api/locations/{id}", locationHandler.Delete)

		// 写真サブリソース
		r.Post("/api/locations/{id}/photos", locationHandler.UploadPhotos)
		r.Post("/api/locations/{id}/photos/import", locationHandler.ImportPhoto)
		r.Delete("/api/locations/{id}/photos/{index}", locationHandler.DeletePhoto)

		// コメント
		r.Post("/api/locations/{id}/comments", commentHandler.Create)
		r.Delete("/api/locations/{id}/comments/{commentID}", commentHandler.Delete)

		// 通報の作成は専用のレート制限を重ねる
		r.With(deps.RateLimiter.ReportCreationMiddleware()).Post("/api/reports", reportHandler.Create)
	})

	// --- 管理者のみのルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAdminMiddleware(deps.Session, deps.Authorizer, deps.Guard))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/reports", reportHandler.List)
		r.Patch("/api/reports/{id}/status", reportHandler.UpdateStatus)
		r.Delete("/api/reports/{id}", reportHandler.Delete)
	})

	return r
}
