package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/salonhub/internal/auth"
	"github.com/hitoshi/salonhub/internal/metrics"
	"github.com/hitoshi/salonhub/internal/middleware"
	"github.com/hitoshi/salonhub/internal/model"
	"github.com/hitoshi/salonhub/internal/route"
)

// 通知メッセージ
const (
	msgInvalidCredentials = "Invalid credentials"
	msgUnexpectedError    = "Something went wrong. Please try again."
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Register(ctx context.Context, in auth.RegisterInput) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthMetrics は認証結果の計測インターフェース。
type AuthMetrics interface {
	RecordLogin(result string)
	RecordRegistration(result string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookie middleware.CookieConfig
}

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	renderer *Renderer
	metrics  AuthMetrics
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnil可。
func NewAuthHandler(service AuthServiceInterface, renderer *Renderer, m AuthMetrics, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		renderer: renderer,
		metrics:  m,
		config:   config,
	}
}

type loginForm struct {
	Email string
	Next  string
}

// LoginPage はログインフォームを表示する。
// GET /auth/login?next=/path
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, PageData{
		Page: route.PageLogin,
		Data: loginForm{Next: middleware.SafeNext(r.URL.Query().Get("next"))},
	})
}

// Login はメールアドレスとパスワードで認証し、セッションCookieを発行する。
// POST /auth/login
//
// 失敗時は "Invalid credentials" の通知付きでフォームを401で再表示し、状態は変更しない。
// 成功時はnext（サイト内パスのみ）またはUserTypeのワークスペースへ303でリダイレクトする。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := loginForm{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Next:  middleware.SafeNext(r.PostFormValue("next")),
	}

	session, err := h.service.Login(r.Context(), form.Email, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.recordLogin(metrics.ResultFailure)
			slog.Info("login failed", slog.String("ip", middleware.ClientIP(r)))
			h.renderer.Render(w, r, http.StatusUnauthorized, PageData{
				Page:  route.PageLogin,
				Flash: &Flash{Kind: "error", Message: msgInvalidCredentials},
				Data:  form,
			})
			return
		}

		h.recordLogin(metrics.ResultError)
		slog.Error("login error", slog.String("error", err.Error()))
		h.renderer.Render(w, r, http.StatusInternalServerError, PageData{
			Page:  route.PageLogin,
			Flash: &Flash{Kind: "error", Message: msgUnexpectedError},
			Data:  form,
		})
		return
	}

	h.recordLogin(metrics.ResultSuccess)
	middleware.SetSessionCookie(w, session.ID, h.config.Cookie)
	setFlash(w, "success", "Logged in successfully as "+string(session.UserType))

	dest := form.Next
	if dest == "" {
		dest = route.HomeFor(session.UserType)
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

type registerForm struct {
	FullName     string
	Email        string
	AccountType  string
	AgreeToTerms bool
}

// RegisterPage は登録フォームを表示する。
// GET /auth/register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, PageData{
		Page: route.PageRegister,
		Data: registerForm{AccountType: string(model.UserTypeProvider)},
	})
}

// Register はアカウントを作成してログイン状態にする。
// POST /auth/register
//
// プロバイダーはオンボーディングへ、顧客はダッシュボードへリダイレクトする。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := registerForm{
		FullName:     strings.TrimSpace(r.PostFormValue("full_name")),
		Email:        strings.TrimSpace(r.PostFormValue("email")),
		AccountType:  r.PostFormValue("account_type"),
		AgreeToTerms: r.PostFormValue("agree_to_terms") != "",
	}
	password := r.PostFormValue("password")

	if msg := validateRegistration(form, password, r.PostFormValue("confirm_password")); msg != "" {
		h.recordRegistration(metrics.ResultFailure)
		h.renderRegisterError(w, r, http.StatusUnprocessableEntity, form, msg)
		return
	}

	session, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:    form.Email,
		Password: password,
		FullName: form.FullName,
		UserType: model.UserType(form.AccountType),
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			h.recordRegistration(metrics.ResultFailure)
			h.renderRegisterError(w, r, http.StatusConflict, form, model.NewEmailTakenError().Message)
		case errors.Is(err, auth.ErrMissingField):
			h.recordRegistration(metrics.ResultFailure)
			h.renderRegisterError(w, r, http.StatusUnprocessableEntity, form, "Please fill in all required fields.")
		default:
			h.recordRegistration(metrics.ResultError)
			slog.Error("registration error", slog.String("error", err.Error()))
			h.renderRegisterError(w, r, http.StatusInternalServerError, form, msgUnexpectedError)
		}
		return
	}

	h.recordRegistration(metrics.ResultSuccess)
	middleware.SetSessionCookie(w, session.ID, h.config.Cookie)
	setFlash(w, "success", "Account created successfully")

	dest := route.HomeFor(session.UserType)
	if session.UserType == model.UserTypeProvider {
		dest = "/auth/onboarding"
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

const msgPasswordTooLong = "Password must be at most 72 bytes long."

// validateRegistration は必須項目の入力とパスワード確認の一致を検証する。
func validateRegistration(form registerForm, password, confirm string) string {
	if form.Email == "" || password == "" {
		return "Please fill in all required fields."
	}
	if _, err := model.ParseUserType(form.AccountType); err != nil {
		return "Please choose an account type."
	}
	if password != confirm {
		return "Passwords do not match"
	}
	if len(password) > auth.MaxPasswordBytes {
		return msgPasswordTooLong
	}
	if !form.AgreeToTerms {
		return "You must agree to the terms and conditions"
	}
	return ""
}

func (h *AuthHandler) renderRegisterError(w http.ResponseWriter, r *http.Request, status int, form registerForm, msg string) {
	h.renderer.Render(w, r, status, PageData{
		Page:  route.PageRegister,
		Flash: &Flash{Kind: "error", Message: msg},
		Data:  form,
	})
}

// Logout はセッションを破棄してログインページへリダイレクトする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	middleware.ClearSessionCookie(w, h.config.Cookie)
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) recordLogin(result string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(result)
	}
}

func (h *AuthHandler) recordRegistration(result string) {
	if h.metrics != nil {
		h.metrics.RecordRegistration(result)
	}
}
