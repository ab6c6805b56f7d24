package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/salonhub/internal/auth"
	"github.com/hitoshi/salonhub/internal/catalog"
	"github.com/hitoshi/salonhub/internal/config"
	"github.com/hitoshi/salonhub/internal/database"
	"github.com/hitoshi/salonhub/internal/handler"
	"github.com/hitoshi/salonhub/internal/logger"
	"github.com/hitoshi/salonhub/internal/metrics"
	"github.com/hitoshi/salonhub/internal/middleware"
	"github.com/hitoshi/salonhub/internal/profile"
	"github.com/hitoshi/salonhub/internal/repository"
	"github.com/hitoshi/salonhub/internal/security"
	"github.com/hitoshi/salonhub/internal/worker/cleanup"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、.envと環境変数からConfigを読み込む。
// 読み込み後、LOG_LEVELに従ってログレベルを設定し直す。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
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
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// newRegistry はGo/プロセスのコレクターを含むPrometheusレジストリと、アプリのCollectorを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

func retryPolicy(cfg *config.Config) profile.RetryPolicy {
	p := profile.DefaultRetryPolicy()
	p.MaxAttempts = cfg.ProfileFetchAttempts
	if cfg.ProfileFetchBackoff > 0 {
		p.InitialBackoff = cfg.ProfileFetchBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// newAuthService は認証サービスを構築する。serveとseedで共有する。
func newAuthService(cfg *config.Config, db *sql.DB) *auth.Service {
	return auth.NewService(
		repository.NewPostgresAccountRepo(db),
		repository.NewPostgresSessionRepo(db),
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
}

// newHandler は全依存関係をワイヤリングしたHTTPハンドラーを返す。
// 返されるstop関数はレートリミッターのクリーンアップを停止する。
func newHandler(cfg *config.Config, db *sql.DB) (http.Handler, func(), error) {
	reg, collector := newRegistry()

	// セキュリティ
	urlGuard := security.NewURLGuard(cfg.AvatarCheckTimeout)
	sanitizer := security.NewContentSanitizer()

	// ドメインサービス
	profileService := profile.NewService(
		repository.NewPostgresProfileRepo(db), sanitizer, urlGuard, collector,
		profile.ServiceConfig{
			Retry:              retryPolicy(cfg),
			VerifyAvatar:       cfg.AvatarVerify,
			AvatarCheckTimeout: cfg.AvatarCheckTimeout,
		},
	)
	authService := newAuthService(cfg, db)

	// 表示
	renderer, err := handler.NewRenderer(collector)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	cat, err := catalog.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	limiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)

	deps := &handler.RouterDeps{
		SessionFinder:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: slog.Default(),

		HealthChecker:  db,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			Cookie: middleware.CookieConfig{
				Domain: cfg.CookieDomain,
				Secure: cfg.CookieSecure,
				MaxAge: cfg.SessionMaxAge,
			},
		},

		Renderer:    renderer,
		Catalog:     cat,
		Storefronts: cat,
		Sanitizer:   sanitizer,

		ProfileSource: profileService,
		Roles:         authService,
	}

	router, err := handler.NewRouter(deps)
	if err != nil {
		limiter.Stop()
		return nil, nil, fmt.Errorf("failed to build router: %w", err)
	}
	return router, limiter.Stop, nil
}

func newHTTPServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// serveUntilSignal はサーバーを起動し、SIGINTまたはSIGTERMを受信したらグレースフルシャットダウンする。
func serveUntilSignal(server *http.Server, name string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s listen error: %w", name, err)
	case <-stop:
	}
	slog.Info("shutting down " + name + "...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runServe はWebサーバーモードで起動する。
func runServe(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	h, stopLimiter, err := newHandler(cfg, db)
	if err != nil {
		return err
	}
	defer stopLimiter()

	return serveUntilSignal(newHTTPServer(cfg.ServerPort, h), "web server")
}

// newWorkerMux はワーカーの運用エンドポイント（/health と /metrics）を返す。
func newWorkerMux(db handler.HealthChecker, reg prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handler.NewHealthHandler(db))
	r.Handle("/metrics", metrics.Handler(reg))
	return r
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップをSESSION_CLEANUP_INTERVALごとに実行し、
// Dockerヘルスチェック用に /health と /metrics を公開する。
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, collector := newRegistry()
	job := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), collector, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Start(ctx, cfg.SessionCleanupInterval)
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	err = serveUntilSignal(newHTTPServer(cfg.ServerPort, newWorkerMux(db, reg)), "worker")
	cancel()
	<-done
	return err
}

// runMigrate はすべての未適用マイグレーションを順番に適用する。
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

// runSeed はデモアカウント（サービス提供者と顧客）を作成する。既存のアカウントはそのまま残す。
func runSeed(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created, err := newAuthService(cfg, db).SeedDemoAccounts(ctx)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("demo accounts seeded",
		slog.Int("created", created),
		slog.Int("total", len(auth.DemoAccounts)),
	)
	return nil
}

// runHealthcheck はdistroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(target string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
