// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/salonhub/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// LoginPath は未認証時のリダイレクト先。
const LoginPath = "/auth/login"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionFinder はセッションの検索に必要なインターフェース。
// auth.Serviceが満たす。
type SessionFinder interface {
	FindSession(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効であればリクエストコンテキストに注入するミドルウェアを返す。
// セッションがなくてもリクエストは拒否しない。拒否はRequireSessionとRequireUserTypeが行う。
func NewSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := finder.FindSession(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// RequireSession はセッションのないリクエストに401の統一エラーを返す。JSON API用。
func RequireSession() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := SessionFromContext(r.Context()); !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUserType はワークスペースのルートガード。
// セッションがなければログインページへ302でリダイレクトし、元のパスをnextに載せる。
// user_typeが一致しなければforbiddenを403で呼び出す。forbiddenがnilなら素の403を返す。
func RequireUserType(userType model.UserType, forbidden http.Handler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				w.Header().Set("Location", LoginRedirectURL(r.URL.RequestURI()))
				w.WriteHeader(http.StatusFound)
				return
			}

			if session.UserType != userType {
				slog.Warn("workspace access denied",
					slog.String("user_id", session.UserID),
					slog.String("user_type", string(session.UserType)),
					slog.String("required", string(userType)),
					slog.String("path", r.URL.Path),
				)
				if forbidden == nil {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				forbidden.ServeHTTP(&forbiddenWriter{ResponseWriter: w}, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// forbiddenWriter はハンドラーが書き込むステータスを403に固定する。
type forbiddenWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (fw *forbiddenWriter) WriteHeader(int) {
	if fw.wroteHeader {
		return
	}
	fw.wroteHeader = true
	fw.ResponseWriter.WriteHeader(http.StatusForbidden)
}

func (fw *forbiddenWriter) Write(b []byte) (int, error) {
	fw.WriteHeader(http.StatusForbidden)
	return fw.ResponseWriter.Write(b)
}

// LoginRedirectURL は戻り先を付けたログインページのURLを返す。
func LoginRedirectURL(next string) string {
	if next == "" || next == "/" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext はログイン後の戻り先として安全なサイト内パスだけを返す。
// 外部URLやプロトコル相対URLは空文字列になる。
func SafeNext(next string) string {
	if next == "" || next[0] != '/' || len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return next
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*model.Session)
	return s, ok && s != nil
}

// ContextWithSession はコンテキストにセッションを注入する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアが有効なセッションを注入したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	s, ok := SessionFromContext(ctx)
	if !ok || s.UserID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return s.UserID, nil
}

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge int
}

// SetSessionCookie はセッションCookieを設定する。
func SetSessionCookie(w http.ResponseWriter, sessionID string, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   config.MaxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
