package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/salonhub/internal/middleware"
	"github.com/hitoshi/salonhub/internal/model"
	"github.com/hitoshi/salonhub/internal/profile"
	"github.com/hitoshi/salonhub/internal/route"
	"github.com/hitoshi/salonhub/internal/ui"
)

//go:embed templates
var templateFS embed.FS

// 追加のページテンプレート（ルート表に載らないもの）
const (
	pageForbidden   route.Page = "forbidden"
	pageServerError route.Page = "server-error"
)

// ドロワーの開閉を表すクエリパラメータ
const (
	drawerParam = "drawer"
	drawerOpen  = "open"
)

// PageRecorder はページ描画の計測インターフェース。
type PageRecorder interface {
	RecordPageRender(page string)
}

// Flash は画面上部に一度だけ表示する通知。
type Flash struct {
	Kind    string // success, error
	Message string
}

// MenuEntry はレイアウトに渡すメニュー項目。
type MenuEntry struct {
	route.NavItem
	Active bool
}

// PageData は全テンプレートに渡すデータ。ページ固有のデータはDataに入る。
type PageData struct {
	Title      string
	Page       route.Page
	Layout     route.Layout
	Path       string
	Session    *model.Session
	Profile    profile.State
	CSRFToken  string
	Flash      *Flash
	Menu       []MenuEntry
	DrawerOpen bool
	// DrawerToggleURL はドロワーの開閉を反転させるリンク先。
	DrawerToggleURL string
	Data            any
}

// Initials はトップバーに表示するプロフィールのイニシャルを返す。
func (d PageData) Initials() string {
	if d.Profile.Data == nil {
		return "?"
	}
	var b strings.Builder
	for _, word := range strings.Fields(d.Profile.Data.DisplayName()) {
		for _, r := range word {
			b.WriteString(strings.ToUpper(string(r)))
			break
		}
		if b.Len() >= 2 {
			break
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

// formField はフォーム入力欄1つ分のテンプレートデータ。
type formField struct {
	Name, Label, Type, Value string
}

func newFormField(name, label, typ, value string) formField {
	return formField{Name: name, Label: label, Type: typ, Value: value}
}

// Renderer はレイアウトとページのテンプレートを保持し、HTMLを描画する。
type Renderer struct {
	pages   map[route.Page]*template.Template
	routes  map[route.Page]route.Route
	metrics PageRecorder
}

// NewRenderer は埋め込みテンプレートを読み込みRendererを生成する。
// ルート表の全ページにテンプレートが無ければエラーを返す。
func NewRenderer(metrics PageRecorder) (*Renderer, error) {
	base := template.New("base").Funcs(ui.FuncMap()).Funcs(template.FuncMap{
		"dollars": func(n int) string { return fmt.Sprintf("$%d", n) },
		"field":   newFormField,
	})
	base, err := base.ParseFS(templateFS, "templates/layouts/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layouts: %w", err)
	}

	rr := &Renderer{
		pages:   make(map[route.Page]*template.Template),
		routes:  make(map[route.Page]route.Route),
		metrics: metrics,
	}

	pages := []route.Route{route.NotFound,
		{Page: pageForbidden, Layout: route.LayoutPublic, Title: "Access denied"},
		{Page: pageServerError, Layout: route.LayoutPublic, Title: "Something went wrong"},
	}
	pages = append(pages, route.Routes...)

	for _, rt := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		name := "templates/pages/" + string(rt.Page) + ".html"
		if _, err := fs.Stat(templateFS, name); err != nil {
			return nil, fmt.Errorf("missing template for page %q: %w", rt.Page, err)
		}
		if t, err = t.ParseFS(templateFS, name); err != nil {
			return nil, fmt.Errorf("failed to parse page %q: %w", rt.Page, err)
		}
		rr.pages[rt.Page] = t
		rr.routes[rt.Page] = rt
	}

	return rr, nil
}

// Render はページをステータスコード付きで描画する。
// 出力はバッファに書き切ってから送るため、テンプレートエラー時に部分的なHTMLは返らない。
func (rr *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	t, ok := rr.pages[data.Page]
	if !ok {
		slog.Error("unknown page template", slog.String("page", string(data.Page)))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if data.Layout == "" {
		data.Layout = rr.routes[data.Page].Layout
	}
	if data.Title == "" {
		data.Title = rr.routes[data.Page].Title
	}
	rr.fill(w, r, &data)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout-"+string(data.Layout), data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", string(data.Page)),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if rr.metrics != nil {
		rr.metrics.RecordPageRender(string(data.Page))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// fill はリクエストから共通項目を補完する。
func (rr *Renderer) fill(w http.ResponseWriter, r *http.Request, data *PageData) {
	data.Path = r.URL.Path
	if data.Session == nil {
		if s, ok := middleware.SessionFromContext(r.Context()); ok {
			data.Session = s
		}
	}
	data.CSRFToken = middleware.CSRFTokenFromContext(r.Context())
	if data.Flash == nil {
		data.Flash = popFlash(w, r)
	}

	menu := route.MenuFor(data.Layout)
	active, hasActive := route.ActiveItem(menu, data.Path)
	data.Menu = make([]MenuEntry, 0, len(menu))
	for _, item := range menu {
		data.Menu = append(data.Menu, MenuEntry{NavItem: item, Active: hasActive && item.Path == active.Path})
	}

	data.DrawerOpen = r.URL.Query().Get(drawerParam) == drawerOpen
	data.DrawerToggleURL = drawerToggleURL(r.URL, !data.DrawerOpen)
}

// drawerToggleURL は現在のURLのドロワー状態だけを切り替えたURLを返す。
func drawerToggleURL(u *url.URL, open bool) string {
	q := u.Query()
	if open {
		q.Set(drawerParam, drawerOpen)
	} else {
		q.Del(drawerParam)
	}
	if len(q) == 0 {
		return u.Path
	}
	return u.Path + "?" + q.Encode()
}
