package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/salonhub/internal/auth"
	"github.com/hitoshi/salonhub/internal/catalog"
	"github.com/hitoshi/salonhub/internal/middleware"
	"github.com/hitoshi/salonhub/internal/model"
	"github.com/hitoshi/salonhub/internal/security"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn    func(ctx context.Context, email, password string) (*model.Session, error)
	registerFn func(ctx context.Context, in auth.RegisterInput) (*model.Session, error)
	logoutFn   func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, auth.ErrInvalidCredentials
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*model.Session, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindSession(_ context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

type mockProfileSource struct {
	getFn    func(ctx context.Context, userID string) (*model.Profile, error)
	updateFn func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error)
}

func (m *mockProfileSource) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return testProfile(userID), nil
}

func (m *mockProfileSource) Update(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, update)
	}
	p := testProfile(userID)
	if update.FullName != nil {
		p.FullName = update.FullName
	}
	if update.AvatarURL != nil {
		p.AvatarURL = update.AvatarURL
	}
	return p, nil
}

type mockRoles struct {
	rolesFn func(ctx context.Context, userID string) ([]model.Role, error)
}

func (m *mockRoles) Roles(ctx context.Context, userID string) ([]model.Role, error) {
	if m.rolesFn != nil {
		return m.rolesFn(ctx, userID)
	}
	return []model.Role{model.RoleProvider}, nil
}

// recordingStorefronts は解決に渡されたストアIDを記録する。
type recordingStorefronts struct {
	catalog *catalog.Catalog
	got     []string
}

func (s *recordingStorefronts) StorefrontFor(storeID string) catalog.Storefront {
	s.got = append(s.got, storeID)
	return s.catalog.StorefrontFor(storeID)
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error {
	return m.err
}

type recordingMetrics struct {
	logins        []string
	registrations []string
	pages         []string
}

func (m *recordingMetrics) RecordLogin(result string)        { m.logins = append(m.logins, result) }
func (m *recordingMetrics) RecordRegistration(result string) { m.registrations = append(m.registrations, result) }
func (m *recordingMetrics) RecordPageRender(page string)     { m.pages = append(m.pages, page) }

// --- テスト用フィクスチャ ---

const (
	testCSRFToken       = "test-token"
	providerSessionID   = "sess-provider"
	customerSessionID   = "sess-customer"
	providerUserID      = "user-provider"
	customerUserID      = "user-customer"
	testProviderName    = "Sarah Miller"
	testProviderEmail   = "provider@example.com"
	testCustomerName    = "Chris Lee"
	testCustomerEmail   = "customer@example.com"
	formContentTypeHTML = "application/x-www-form-urlencoded"
)

func strPtr(s string) *string { return &s }

func testProfile(userID string) *model.Profile {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	p := &model.Profile{
		ID:        userID,
		Email:     testProviderEmail,
		FullName:  strPtr(testProviderName),
		UserType:  model.UserTypeProvider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if userID == customerUserID {
		p.Email = testCustomerEmail
		p.FullName = strPtr(testCustomerName)
		p.UserType = model.UserTypeCustomer
	}
	return p
}

type testEnv struct {
	handler  http.Handler
	renderer *Renderer
	catalog  *catalog.Catalog
	auth     *mockAuthService
	profiles *mockProfileSource
	roles    *mockRoles
	stores   *recordingStorefronts
	health   *mockHealthChecker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	renderer, err := NewRenderer(nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	env := &testEnv{
		renderer: renderer,
		catalog:  cat,
		auth:     &mockAuthService{},
		profiles: &mockProfileSource{},
		roles:    &mockRoles{},
		stores:   &recordingStorefronts{catalog: cat},
		health:   &mockHealthChecker{},
	}

	finder := &mockSessionFinder{sessions: map[string]*model.Session{
		providerSessionID: {ID: providerSessionID, UserID: providerUserID, UserType: model.UserTypeProvider},
		customerSessionID: {ID: customerSessionID, UserID: customerUserID, UserType: model.UserTypeCustomer},
	}}

	h, err := NewRouter(&RouterDeps{
		SessionFinder: finder,
		HealthChecker: env.health,
		AuthService:   env.auth,
		Renderer:      renderer,
		Catalog:       cat,
		Storefronts:   env.stores,
		Sanitizer:     security.NewContentSanitizer(),
		ProfileSource: env.profiles,
		Roles:         env.roles,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	env.handler = h
	return env
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// get はセッションCookie付き（sessionIDが空なら無し）のGETを送る。
func (e *testEnv) get(target, sessionID string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionID})
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.serve(req)
}

// post はCSRFトークン付きのフォーム送信を行う。
func (e *testEnv) post(target, sessionID string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFormField, testCSRFToken)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", formContentTypeHTML)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionID})
	}
	return e.serve(req)
}

// jsonRequest はCSRFヘッダー付きのJSONリクエストを送る。
func (e *testEnv) jsonRequest(method, target, sessionID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CSRFHeaderName, testCSRFToken)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionID})
	}
	return e.serve(req)
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- HTMLヘルパー ---

type htmlNode = html.Node

func parseHTML(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// byAttr は属性を持つ要素に一致する。valueが空でなければ値も比較する。
func byAttr(key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := attr(n, key)
		return ok && (value == "" || v == value)
	}
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

func findOne(t *testing.T, doc *html.Node, match func(*html.Node) bool, desc string) *html.Node {
	t.Helper()
	nodes := findAll(doc, match)
	if len(nodes) == 0 {
		t.Fatalf("element not found: %s", desc)
	}
	return nodes[0]
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}
