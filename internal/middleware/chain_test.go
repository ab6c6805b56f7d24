package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/salonhub/internal/model"
)

// TestMiddlewareChain_SessionGuard_AllowsMatchingWorkspace は
// Session → RequireUserType の順で一致するワークスペースに入れることを検証する。
func TestMiddlewareChain_SessionGuard_AllowsMatchingWorkspace(t *testing.T) {
	finder := newFinder(testSession("provider-session", "user-provider", model.UserTypeProvider))
	chain := NewSessionMiddleware(finder)(RequireUserType(model.UserTypeProvider, nil)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/provider/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "provider-session"})
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestMiddlewareChain_SessionGuard_CustomerCannotEnterProvider は
// customerセッションで/provider/*に入ると403になることを検証する。
func TestMiddlewareChain_SessionGuard_CustomerCannotEnterProvider(t *testing.T) {
	finder := newFinder(testSession("customer-session", "user-customer", model.UserTypeCustomer))
	chain := NewSessionMiddleware(finder)(RequireUserType(model.UserTypeProvider, nil)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/provider/settings", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "customer-session"})
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestMiddlewareChain_ExpiredSessionRedirectsToLogin は
// 期限切れセッションのCookieでも未認証として扱われることを検証する。
func TestMiddlewareChain_ExpiredSessionRedirectsToLogin(t *testing.T) {
	chain := NewSessionMiddleware(newFinder())(RequireUserType(model.UserTypeCustomer, nil)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/customer/subscriptions", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired-session"})
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/auth/login?next=") {
		t.Errorf("Location = %q, want login redirect", loc)
	}
}

// TestMiddlewareChain_RecoveryAndSecurityHeaders は
// panicが500に変換され、セキュリティヘッダーが付くことを検証する。
func TestMiddlewareChain_RecoveryAndSecurityHeaders(t *testing.T) {
	chain := NewRecoveryMiddleware()(NewSecurityHeadersMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	chain.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := w.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("expected Content-Security-Policy header")
	}
}

func TestRecoveryMiddleware_UsesFallbackPage(t *testing.T) {
	fallback := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("something went wrong"))
	})
	chain := NewRecoveryMiddleware(fallback)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	chain.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/provider/dashboard", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if w.Body.String() != "something went wrong" {
		t.Errorf("body = %q", w.Body.String())
	}
}
