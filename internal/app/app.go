package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/rioux/courtspot/internal/authz"
	"github.com/rioux/courtspot/internal/blob"
	"github.com/rioux/courtspot/internal/config"
	"github.com/rioux/courtspot/internal/database"
	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/handler"
	"github.com/rioux/courtspot/internal/identity"
	"github.com/rioux/courtspot/internal/logger"
	"github.com/rioux/courtspot/internal/metrics"
	"github.com/rioux/courtspot/internal/middleware"
	"github.com/rioux/courtspot/internal/nav"
	"github.com/rioux/courtspot/internal/security"
	"github.com/rioux/courtspot/internal/session"
	"github.com/rioux/courtspot/internal/store"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// Backends はプロセス全体で共有するバックエンドハンドルの集合。
// DB接続・各ストア・認証プロバイダを1箇所で束ねる。
type Backends struct {
	DB         *sql.DB
	Docs       docstore.Store
	Blobs      blob.Store
	Provider   identity.Provider
	Session    *session.Store
	Authorizer *authz.Authorizer
	Collector  *metrics.PrometheusCollector

	Locations *store.LocationStore
	Comments  *store.CommentStore
	Reports   *store.ReportStore
	Guard     *nav.Guard
}

// Close は保持しているリソースを解放する。
func (b *Backends) Close() error {
	if b.DB != nil {
		return b.DB.Close()
	}
	return nil
}

var (
	backendsOnce sync.Once
	backends     *Backends
	backendsErr  error
)

// OpenBackends はバックエンドハンドルを初期化して返す。
// 初期化はプロセス内で1回だけ行われ、2回目以降は同じハンドルを返す。
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	backendsOnce.Do(func() {
		backends, backendsErr = openBackends(ctx, cfg)
	})
	return backends, backendsErr
}

func openBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. ドキュメントストア（メトリクス計測付き）
	collector := metrics.NewPrometheusCollector()
	var docs docstore.Store = docstore.NewInstrumentedStore(docstore.NewPostgresStore(db), collector)

	// 3. コンテンツストア
	var blobs blob.Store
	if cfg.BlobBucket != "" {
		s3Store, err := blob.NewS3Store(ctx, blob.S3Config{
			Bucket:        cfg.BlobBucket,
			Region:        cfg.BlobRegion,
			Endpoint:      cfg.BlobEndpoint,
			PathStyle:     cfg.BlobPathStyle,
			PublicBaseURL: cfg.BlobPublicBaseURL,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open blob store: %w", err)
		}
		blobs = s3Store
	} else {
		// 開発用フォールバック。アップロードはプロセス再起動で消える。
		slog.Warn("BLOB_S3_BUCKET is not set, using in-memory blob store")
		blobs = blob.NewMemoryStore()
	}

	// 4. 認証プロバイダとセッション
	provider := identity.NewGoogleProvider(identity.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	sess := session.New(provider, docs, slog.Default())

	// 5. 認可とセキュリティサービス
	az := authz.New(cfg.AdminEmail)
	sanitizer := security.NewTextSanitizer()
	ssrfGuard := security.NewSSRFGuard()

	// 6. リソースストア
	locations := store.NewLocationStore(store.LocationDeps{
		Docs:                docs,
		Blobs:               blobs,
		Session:             sess,
		Authorizer:          az,
		Sanitizer:           sanitizer,
		SSRFGuard:           ssrfGuard,
		Metrics:             collector,
		Logger:              slog.Default(),
		UploadMaxConcurrent: cfg.UploadMaxConcurrent,
		UploadMaxSize:       cfg.UploadMaxSize,
		PhotoFetchTimeout:   cfg.PhotoFetchTimeout,
	})
	comments := store.NewCommentStore(docs, sess, sanitizer, collector, slog.Default())
	reports := store.NewReportStore(docs, sess, az, sanitizer, collector, slog.Default())

	return &Backends{
		DB:         db,
		Docs:       docs,
		Blobs:      blobs,
		Provider:   provider,
		Session:    sess,
		Authorizer: az,
		Collector:  collector,
		Locations:  locations,
		Comments:   comments,
		Reports:    reports,
		Guard:      nav.NewGuard(sess, az),
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// バックエンドを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	b, err := OpenBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	// レート制限の設定（configはreq/min単位なのでreq/secに変換する）
	limiterCfg := middleware.DefaultRateLimiterConfig()
	limiterCfg.GeneralRate = rateLimitPerSecond(cfg.RateLimitGeneral)
	limiterCfg.GeneralBurst = cfg.RateLimitGeneral
	limiterCfg.ReportRate = rateLimitPerSecond(cfg.RateLimitReport)
	limiterCfg.ReportBurst = cfg.RateLimitReport
	limiter := middleware.NewRateLimiter(limiterCfg)
	defer limiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Session:    b.Session,
		Authorizer: b.Authorizer,
		Guard:      b.Guard,
		Locations:  b.Locations,
		Comments:   b.Comments,
		Reports:    b.Reports,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:      cfg.BaseURL,
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		MetricsHandler:    b.Collector.Handler(),
		Logger:            slog.Default(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// rateLimitPerSecond はreq/min設定値をrate.Limit（req/sec）に変換する。
func rateLimitPerSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
