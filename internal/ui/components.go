// Package ui はページテンプレートから使う共通UI部品を提供する。
package ui

import (
	"bytes"
	"html/template"
	"strings"
)

// Variant はボタンの見た目の種類。
type Variant string

const (
	VariantPrimary   Variant = "primary"
	VariantSecondary Variant = "secondary"
	VariantOutline   Variant = "outline"
	VariantGhost     Variant = "ghost"
)

// LoadingLabel は読み込み中のボタンに表示するラベル。
const LoadingLabel = "Loading..."

const buttonBase = "rounded-md px-4 py-2 text-sm font-medium transition-colors focus:outline-none focus:ring-2 focus:ring-offset-2"

var variantClasses = map[Variant]string{
	VariantPrimary:   "bg-primary-600 text-white hover:bg-primary-700 focus:ring-primary-500",
	VariantSecondary: "bg-secondary text-text hover:bg-secondary/90",
	VariantOutline:   "border border-gray-300 bg-white text-gray-700 hover:bg-gray-50",
	VariantGhost:     "text-gray-700 hover:bg-gray-100",
}

// ButtonProps はButtonの描画パラメータ。
type ButtonProps struct {
	Label     string
	Variant   Variant
	Type      string
	Name      string
	Value     string
	Class     string
	FullWidth bool
	Loading   bool
	Disabled  bool
}

// ButtonClass はボタンのクラス属性値を返す。未知のVariantはprimaryとして扱う。
func ButtonClass(v Variant, fullWidth bool, extra string) string {
	vc, ok := variantClasses[v]
	if !ok {
		vc = variantClasses[VariantPrimary]
	}
	return Merge(buttonBase, vc, map[string]bool{"w-full": fullWidth}, extra)
}

var buttonTmpl = template.Must(template.New("button").Parse(
	`<button type="{{.Type}}" class="{{.Class}}"` +
		`{{if .Name}} name="{{.Name}}"{{end}}{{if .Value}} value="{{.Value}}"{{end}}` +
		`{{if .Disabled}} disabled{{end}}>{{.Label}}</button>`))

// Button はボタン要素を描画する。Loading中はラベルを置き換えて無効化する。
func Button(p ButtonProps) template.HTML {
	data := struct {
		Type, Class, Name, Value, Label string
		Disabled                        bool
	}{
		Type:     p.Type,
		Class:    ButtonClass(p.Variant, p.FullWidth, p.Class),
		Name:     p.Name,
		Value:    p.Value,
		Label:    p.Label,
		Disabled: p.Disabled || p.Loading,
	}
	if data.Type == "" {
		data.Type = "button"
	}
	if p.Loading {
		data.Label = LoadingLabel
	}
	return execute(buttonTmpl, data)
}

// ButtonArgs はテンプレートから使うための Button の別形式。
// オプションは "full", "loading", "disabled" のフラグか "key=value" 形式
// (variant, type, name, value, class) で指定する。
func ButtonArgs(label string, opts ...string) template.HTML {
	p := ButtonProps{Label: label}
	for _, opt := range opts {
		key, value, hasValue := strings.Cut(opt, "=")
		if !hasValue {
			switch key {
			case "full":
				p.FullWidth = true
			case "loading":
				p.Loading = true
			case "disabled":
				p.Disabled = true
			}
			continue
		}
		switch key {
		case "variant":
			p.Variant = Variant(value)
		case "type":
			p.Type = value
		case "name":
			p.Name = value
		case "value":
			p.Value = value
		case "class":
			p.Class = value
		}
	}
	return Button(p)
}

const cardBase = "bg-white rounded-lg shadow-sm p-6"

// CardClass はカード外枠のクラス属性値を返す。
func CardClass(extra ...any) string {
	return Merge(append([]any{cardBase}, extra...)...)
}

var cardTmpl = template.Must(template.New("card").Parse(
	`<div class="{{.Class}}">` +
		`{{if .Title}}<h3 class="text-lg font-semibold mb-4">{{.Title}}</h3>{{end}}` +
		`{{.Body}}</div>`))

// Card はタイトル付きのカードを描画する。bodyはエスケープされない。
func Card(title string, body template.HTML, class string) template.HTML {
	return execute(cardTmpl, struct {
		Class, Title string
		Body         template.HTML
	}{CardClass(class), title, body})
}

const logoHTML = `<a href="/" class="flex items-center space-x-2">` +
	`<svg class="h-8 w-8 text-secondary" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" aria-hidden="true">` +
	`<rect x="3" y="4" width="18" height="18" rx="2" ry="2"></rect>` +
	`<line x1="16" y1="2" x2="16" y2="6"></line><line x1="8" y1="2" x2="8" y2="6"></line>` +
	`<line x1="3" y1="10" x2="21" y2="10"></line></svg>` +
	`<span class="text-xl font-bold text-text">SalonHub</span></a>`

// Logo はトップページへリンクするブランドロゴを返す。
func Logo() template.HTML {
	return template.HTML(logoHTML)
}

// FuncMap はテンプレートに登録するUI関数群を返す。
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"cn":        Merge,
		"button":    ButtonArgs,
		"card":      Card,
		"cardClass": CardClass,
		"logo":      Logo,
	}
}

func execute(t *template.Template, data any) template.HTML {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// 固定テンプレートと文字列フィールドのみなので実行時エラーにはならない
		panic(err)
	}
	return template.HTML(buf.String())
}
