// Package route はURLパスと表示ページ・レイアウトの対応表を定義する。
// ルーター、レイアウトのナビゲーション、ガードはすべてこの表を参照する。
package route

import (
	"strings"

	"github.com/hitoshi/salonhub/internal/model"
)

// Layout はページを包むレイアウトシェル。
type Layout string

const (
	LayoutPublic   Layout = "public"
	LayoutAuth     Layout = "auth"
	LayoutProvider Layout = "provider"
	LayoutCustomer Layout = "customer"
)

// Page はリーフページの識別子。テンプレート名とメトリクスのラベルを兼ねる。
type Page string

const (
	PageLanding               Page = "landing"
	PageStorefront            Page = "storefront"
	PageLogin                 Page = "login"
	PageRegister              Page = "register"
	PageOnboarding            Page = "onboarding"
	PageProviderDashboard     Page = "provider-dashboard"
	PageProviderSubscriptions Page = "provider-subscriptions"
	PageProviderCustomers     Page = "provider-customers"
	PageProviderSettings      Page = "provider-settings"
	PageCustomerDashboard     Page = "customer-dashboard"
	PageCustomerSubscriptions Page = "customer-subscriptions"
	PageNotFound              Page = "not-found"
)

// Route はリーフページ1件の定義。PatternはchiのURLパターン記法。
type Route struct {
	Pattern string
	Page    Page
	Layout  Layout
	Title   string
	// UserType が空でない場合、そのUserTypeのセッションのみ入場できる。
	UserType model.UserType
}

// Redirect はファミリーのルートから既定リーフへのリダイレクト。
type Redirect struct {
	From string
	To   string
}

// Routes は全リーフページ。
var Routes = []Route{
	{Pattern: "/", Page: PageLanding, Layout: LayoutPublic, Title: "SalonHub"},
	{Pattern: "/s/{storeId}", Page: PageStorefront, Layout: LayoutPublic, Title: "Storefront"},

	{Pattern: "/auth/login", Page: PageLogin, Layout: LayoutAuth, Title: "Sign in"},
	{Pattern: "/auth/register", Page: PageRegister, Layout: LayoutAuth, Title: "Create account"},
	{Pattern: "/auth/onboarding", Page: PageOnboarding, Layout: LayoutAuth, Title: "Onboarding"},

	{Pattern: "/provider/dashboard", Page: PageProviderDashboard, Layout: LayoutProvider, Title: "Dashboard", UserType: model.UserTypeProvider},
	{Pattern: "/provider/subscriptions", Page: PageProviderSubscriptions, Layout: LayoutProvider, Title: "Subscriptions", UserType: model.UserTypeProvider},
	{Pattern: "/provider/customers", Page: PageProviderCustomers, Layout: LayoutProvider, Title: "Customers", UserType: model.UserTypeProvider},
	{Pattern: "/provider/settings", Page: PageProviderSettings, Layout: LayoutProvider, Title: "Settings", UserType: model.UserTypeProvider},

	{Pattern: "/customer/dashboard", Page: PageCustomerDashboard, Layout: LayoutCustomer, Title: "Dashboard", UserType: model.UserTypeCustomer},
	{Pattern: "/customer/subscriptions", Page: PageCustomerSubscriptions, Layout: LayoutCustomer, Title: "Subscriptions", UserType: model.UserTypeCustomer},
}

// Redirects はファミリーのインデックスリダイレクト。
var Redirects = []Redirect{
	{From: "/auth", To: "/auth/login"},
	{From: "/provider", To: "/provider/dashboard"},
	{From: "/customer", To: "/customer/dashboard"},
}

// NotFound は一致するパスが無い場合のルート。
var NotFound = Route{Page: PageNotFound, Layout: LayoutPublic, Title: "Page not found"}

// Match はパス解決の結果。リーフ、リダイレクト、NotFoundのいずれか1つを表す。
type Match struct {
	Route      Route
	Params     map[string]string
	RedirectTo string
}

// IsRedirect はリダイレクトの場合にtrueを返す。
func (m Match) IsRedirect() bool {
	return m.RedirectTo != ""
}

// IsNotFound は一致するパスが無かった場合にtrueを返す。
func (m Match) IsNotFound() bool {
	return !m.IsRedirect() && m.Route.Page == PageNotFound
}

// Resolve はパスを解決する。
// 末尾スラッシュ付きのパスは、スラッシュを除いたパスが解決できる場合にその正規パスへリダイレクトする。
func Resolve(path string) Match {
	if path == "" {
		path = "/"
	}

	if m, ok := resolveExact(path); ok {
		return m
	}

	if path != "/" && strings.HasSuffix(path, "/") {
		trimmed := strings.TrimSuffix(path, "/")
		if m, ok := resolveExact(trimmed); ok {
			if m.IsRedirect() {
				return m
			}
			return Match{RedirectTo: trimmed}
		}
	}

	return Match{Route: NotFound}
}

func resolveExact(path string) (Match, bool) {
	for _, rd := range Redirects {
		if rd.From == path {
			return Match{RedirectTo: rd.To}, true
		}
	}
	for _, r := range Routes {
		if params, ok := matchPattern(r.Pattern, path); ok {
			return Match{Route: r, Params: params}, true
		}
	}
	return Match{}, false
}

// matchPattern はセグメント単位でパターンと照合する。{name}は空でない1セグメントに一致する。
func matchPattern(pattern, path string) (map[string]string, bool) {
	if pattern == "/" || path == "/" {
		return nil, pattern == path
	}

	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(ps) != len(xs) {
		return nil, false
	}

	var params map[string]string
	for i, p := range ps {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if xs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = map[string]string{}
			}
			params[p[1:len(p)-1]] = xs[i]
			continue
		}
		if p != xs[i] {
			return nil, false
		}
	}
	return params, true
}

// HomeFor はUserTypeごとのワークスペースの既定リーフを返す。
func HomeFor(userType model.UserType) string {
	switch userType {
	case model.UserTypeProvider:
		return "/provider/dashboard"
	case model.UserTypeCustomer:
		return "/customer/dashboard"
	default:
		return "/auth/login"
	}
}
