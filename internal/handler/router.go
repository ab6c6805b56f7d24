package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/salonhub/internal/catalog"
	"github.com/hitoshi/salonhub/internal/metrics"
	"github.com/hitoshi/salonhub/internal/middleware"
	"github.com/hitoshi/salonhub/internal/profile"
	"github.com/hitoshi/salonhub/internal/route"
	"github.com/hitoshi/salonhub/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig
	Logger            *slog.Logger

	// 運用
	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ページ
	Renderer    *Renderer
	Catalog     *catalog.Catalog
	Storefronts StorefrontResolver
	Sanitizer   security.TextSanitizer

	// プロフィール
	ProfileSource profile.Source
	Roles         RoleLister
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session → Logging → Metrics → CSRF
//
// ページのルートはroute.Routesを走査して登録するため、ルート表と実際のルーティングは常に一致する。
// ワークスペースのルートにはUserTypeのガードとユーザー単位のレート制限が掛かる。
// ルート表のページに対応するハンドラーが無い場合はエラーを返す。
func NewRouter(deps *RouterDeps) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pageHandler := NewPageHandler(deps.Renderer, deps.Catalog, deps.Storefronts, deps.Sanitizer, deps.ProfileSource)
	authHandler := NewAuthHandler(deps.AuthService, deps.Renderer, deps.Metrics, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileSource, deps.Roles, deps.Renderer, deps.Catalog, deps.Sanitizer)

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(http.HandlerFunc(pageHandler.ServerError)))
	// HEADはGETのルートで応答する
	r.Use(chimw.GetHead)
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

	general := passThrough
	login := passThrough
	if deps.RateLimiter != nil {
		general = deps.RateLimiter.GeneralMiddleware()
		login = deps.RateLimiter.LoginMiddleware()
	}

	// --- ページ（GET） ---
	pages := map[route.Page]http.HandlerFunc{
		route.PageLanding:               pageHandler.Landing,
		route.PageStorefront:            pageHandler.Storefront,
		route.PageLogin:                 authHandler.LoginPage,
		route.PageRegister:              authHandler.RegisterPage,
		route.PageOnboarding:            pageHandler.Onboarding,
		route.PageProviderDashboard:     pageHandler.ProviderDashboard,
		route.PageProviderSubscriptions: pageHandler.ProviderSubscriptions,
		route.PageProviderCustomers:     pageHandler.ProviderCustomers,
		route.PageProviderSettings:      profileHandler.Settings,
		route.PageCustomerDashboard:     pageHandler.CustomerDashboard,
		route.PageCustomerSubscriptions: pageHandler.CustomerSubscriptions,
	}

	// --- フォーム送信（POST） ---
	forms := map[route.Page]http.Handler{
		route.PageLogin:            login(http.HandlerFunc(authHandler.Login)),
		route.PageRegister:         login(http.HandlerFunc(authHandler.Register)),
		route.PageOnboarding:       http.HandlerFunc(pageHandler.OnboardingStep),
		route.PageProviderSettings: http.HandlerFunc(profileHandler.UpdateSettings),
	}

	forbidden := http.HandlerFunc(pageHandler.Forbidden)

	for _, rt := range route.Routes {
		h, ok := pages[rt.Page]
		if !ok {
			return nil, fmt.Errorf("no handler for page %q (%s)", rt.Page, rt.Pattern)
		}

		var mws chi.Middlewares
		if rt.UserType != "" {
			mws = append(mws, middleware.RequireUserType(rt.UserType, forbidden), general)
		}

		r.With(mws...).Get(rt.Pattern, h)
		if form, ok := forms[rt.Page]; ok {
			r.With(mws...).Post(rt.Pattern, form.ServeHTTP)
		}
	}

	for _, rd := range route.Redirects {
		to := rd.To
		r.Get(rd.From, func(w http.ResponseWriter, r *http.Request) {
			redirectFound(w, to)
		})
	}

	r.Post("/auth/logout", authHandler.Logout)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- JSON API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession())
			r.Use(general)

			r.Get("/profile", profileHandler.GetProfile)
			r.Patch("/profile", profileHandler.PatchProfile)
		})
	})

	r.NotFound(pageHandler.NotFound)

	return r, nil
}

// redirectFound は本文なしの302リダイレクトを書き込む。
func redirectFound(w http.ResponseWriter, to string) {
	w.Header().Set("Location", to)
	w.WriteHeader(http.StatusFound)
}

func passThrough(next http.Handler) http.Handler {
	return next
}
