package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/salonhub/internal/auth"
	"github.com/hitoshi/salonhub/internal/metrics"
	"github.com/hitoshi/salonhub/internal/middleware"
	"github.com/hitoshi/salonhub/internal/model"
)

func providerLogin(env *testEnv) {
	env.auth.loginFn = func(_ context.Context, email, password string) (*model.Session, error) {
		if email != testProviderEmail || password != "password" {
			return nil, auth.ErrInvalidCredentials
		}
		return &model.Session{ID: providerSessionID, UserID: providerUserID, UserType: model.UserTypeProvider}, nil
	}
}

func TestLogin_SuccessRedirectsToWorkspace(t *testing.T) {
	env := newTestEnv(t)
	providerLogin(env)

	w := env.post("/auth/login", "", url.Values{"email": {testProviderEmail}, "password": {"password"}})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if got := w.Header().Get("Location"); got != "/provider/dashboard" {
		t.Errorf("Location = %q, want /provider/dashboard", got)
	}
	c := findCookie(w, middleware.SessionCookieName)
	if c == nil || c.Value != providerSessionID {
		t.Fatalf("session cookie = %+v, want %q", c, providerSessionID)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if findCookie(w, flashCookieName) == nil {
		t.Error("expected flash cookie after login")
	}
}

func TestLogin_FlowThroughFamilyRedirect(t *testing.T) {
	env := newTestEnv(t)
	providerLogin(env)

	login := env.post("/auth/login", "", url.Values{"email": {testProviderEmail}, "password": {"password"}})
	flash := findCookie(login, flashCookieName)
	if flash == nil {
		t.Fatal("expected flash cookie after login")
	}

	w := env.get("/provider", providerSessionID)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/provider/dashboard" {
		t.Fatalf("GET /provider: status = %d Location = %q", w.Code, w.Header().Get("Location"))
	}

	w = env.get("/provider/dashboard", providerSessionID, flash)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", w.Code)
	}
	doc := parseHTML(t, w.Body.String())

	nav := findOne(t, doc, byAttr("data-nav", "Dashboard"), "Dashboard nav link")
	if v, _ := attr(nav, "aria-current"); v != "page" {
		t.Errorf("Dashboard aria-current = %q, want page", v)
	}
	for _, other := range findAll(doc, byAttr("data-nav", "")) {
		label, _ := attr(other, "data-nav")
		if _, ok := attr(other, "aria-current"); ok && label != "Dashboard" {
			t.Errorf("nav %q must not be current", label)
		}
	}

	initials := findOne(t, doc, byAttr("data-initials", ""), "initials")
	if got := textOf(initials); got != "SM" {
		t.Errorf("initials = %q, want SM", got)
	}

	msg := findOne(t, doc, byAttr("data-flash", "success"), "success flash")
	if got := textOf(msg); got != "Logged in successfully as provider" {
		t.Errorf("flash = %q", got)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	providerLogin(env)

	w := env.post("/auth/login", "", url.Values{"email": {testProviderEmail}, "password": {"wrong"}})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if findCookie(w, middleware.SessionCookieName) != nil {
		t.Error("session cookie must not be set on failure")
	}

	doc := parseHTML(t, w.Body.String())
	msg := findOne(t, doc, byAttr("data-flash", "error"), "error flash")
	if got := textOf(msg); got != "Invalid credentials" {
		t.Errorf("flash = %q, want Invalid credentials", got)
	}
	email := findOne(t, doc, byAttr("name", "email"), "email input")
	if v, _ := attr(email, "value"); v != testProviderEmail {
		t.Errorf("email value = %q, want it preserved", v)
	}
	password := findOne(t, doc, byAttr("name", "password"), "password input")
	if _, ok := attr(password, "value"); ok {
		t.Error("password must not be echoed back")
	}
}

func TestLogin_NextParameter(t *testing.T) {
	tests := []struct {
		name string
		next string
		want string
	}{
		{"site path", "/provider/customers?q=emma", "/provider/customers?q=emma"},
		{"absolute URL is ignored", "https://evil.example.com/", "/provider/dashboard"},
		{"protocol relative is ignored", "//evil.example.com", "/provider/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			providerLogin(env)

			w := env.post("/auth/login", "", url.Values{
				"email":    {testProviderEmail},
				"password": {"password"},
				"next":     {tt.next},
			})
			if got := w.Header().Get("Location"); got != tt.want {
				t.Errorf("Location = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginPage_CarriesNext(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/auth/login?next=%2Fprovider%2Fsettings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	doc := parseHTML(t, w.Body.String())
	next := findOne(t, doc, byAttr("name", "next"), "next input")
	if v, _ := attr(next, "value"); v != "/provider/settings" {
		t.Errorf("next = %q, want /provider/settings", v)
	}
}

func TestLogin_ServiceErrorRendersGenericMessage(t *testing.T) {
	env := newTestEnv(t)
	env.auth.loginFn = func(context.Context, string, string) (*model.Session, error) {
		return nil, errors.New("connection refused")
	}

	w := env.post("/auth/login", "", url.Values{"email": {"a@example.com"}, "password": {"x"}})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("internal error details must not leak into the page")
	}
}

func TestLogin_RecordsMetrics(t *testing.T) {
	env := newTestEnv(t)
	providerLogin(env)
	m := &recordingMetrics{}
	h := NewAuthHandler(env.auth, env.renderer, m, AuthHandlerConfig{})

	for _, password := range []string{"wrong", "password"} {
		form := url.Values{"email": {testProviderEmail}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", formContentTypeHTML)
		h.Login(httptest.NewRecorder(), req)
	}

	want := []string{metrics.ResultFailure, metrics.ResultSuccess}
	if len(m.logins) != len(want) || m.logins[0] != want[0] || m.logins[1] != want[1] {
		t.Errorf("logins = %v, want %v", m.logins, want)
	}
}

func validRegistration() url.Values {
	return url.Values{
		"full_name":        {"Sarah Miller"},
		"email":            {"new@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
		"account_type":     {"provider"},
		"agree_to_terms":   {"yes"},
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(url.Values)
		want   string
	}{
		{"password mismatch", func(v url.Values) { v.Set("confirm_password", "other") }, "Passwords do not match"},
		{"terms not accepted", func(v url.Values) { v.Del("agree_to_terms") }, "You must agree to the terms and conditions"},
		{"missing email", func(v url.Values) { v.Set("email", "") }, "Please fill in all required fields."},
		{"unknown account type", func(v url.Values) { v.Set("account_type", "admin") }, "Please choose an account type."},
		{"password over 72 bytes", func(v url.Values) {
			long := strings.Repeat("a", 73)
			v.Set("password", long)
			v.Set("confirm_password", long)
		}, "Password must be at most 72 bytes long."},
		{"multibyte password over 72 bytes", func(v url.Values) {
			long := strings.Repeat("あ", 25)
			v.Set("password", long)
			v.Set("confirm_password", long)
		}, "Password must be at most 72 bytes long."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			called := false
			env.auth.registerFn = func(context.Context, auth.RegisterInput) (*model.Session, error) {
				called = true
				return nil, nil
			}

			form := validRegistration()
			tt.modify(form)
			w := env.post("/auth/register", "", form)

			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", w.Code)
			}
			if called {
				t.Error("service must not be called when validation fails")
			}
			doc := parseHTML(t, w.Body.String())
			msg := findOne(t, doc, byAttr("data-flash", "error"), "error flash")
			if got := textOf(msg); got != tt.want {
				t.Errorf("flash = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegister_SuccessRedirects(t *testing.T) {
	tests := []struct {
		accountType string
		want        string
	}{
		{"provider", "/auth/onboarding"},
		{"customer", "/customer/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.accountType, func(t *testing.T) {
			env := newTestEnv(t)
			var got auth.RegisterInput
			env.auth.registerFn = func(_ context.Context, in auth.RegisterInput) (*model.Session, error) {
				got = in
				return &model.Session{ID: "sess-new", UserID: "user-new", UserType: in.UserType}, nil
			}

			form := validRegistration()
			form.Set("account_type", tt.accountType)
			w := env.post("/auth/register", "", form)

			if w.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", w.Code)
			}
			if loc := w.Header().Get("Location"); loc != tt.want {
				t.Errorf("Location = %q, want %q", loc, tt.want)
			}
			if got.Email != "new@example.com" || got.FullName != "Sarah Miller" || string(got.UserType) != tt.accountType {
				t.Errorf("unexpected input: %+v", got)
			}
			if c := findCookie(w, middleware.SessionCookieName); c == nil || c.Value != "sess-new" {
				t.Errorf("session cookie = %+v", c)
			}
		})
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	env := newTestEnv(t)
	env.auth.registerFn = func(context.Context, auth.RegisterInput) (*model.Session, error) {
		return nil, auth.ErrEmailTaken
	}

	w := env.post("/auth/register", "", validRegistration())

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	doc := parseHTML(t, w.Body.String())
	msg := findOne(t, doc, byAttr("data-flash", "error"), "error flash")
	if got := textOf(msg); got != model.NewEmailTakenError().Message {
		t.Errorf("flash = %q", got)
	}
	name := findOne(t, doc, byAttr("name", "full_name"), "full_name input")
	if v, _ := attr(name, "value"); v != "Sarah Miller" {
		t.Errorf("full_name = %q, want preserved", v)
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	env := newTestEnv(t)
	var deleted string
	env.auth.logoutFn = func(_ context.Context, sessionID string) error {
		deleted = sessionID
		return nil
	}

	w := env.post("/auth/logout", providerSessionID, nil)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("Location = %q", loc)
	}
	if deleted != providerSessionID {
		t.Errorf("Logout called with %q", deleted)
	}
	c := findCookie(w, middleware.SessionCookieName)
	if c == nil || c.MaxAge >= 0 {
		t.Errorf("session cookie must be cleared: %+v", c)
	}
}

func TestLogout_RequiresCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: providerSessionID})

	w := env.serve(req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
