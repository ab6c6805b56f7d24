// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はプロフィールやストアフロントに表示されるユーザー入力を
// bluemondayの許可リストポリシーで無害化する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// PlainText は全てのタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	PlainText(raw string) string

	// Description は段落・改行・強調・リンクのみを許可したHTMLを返す。
	Description(raw string) string
}

// ContentSanitizer はTextSanitizerの実装。
// ポリシーはスレッドセーフなため、単一インスタンスを共有してよい。
type ContentSanitizer struct {
	strict      *bluemonday.Policy
	description *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
//   - strict: StrictPolicy（全タグ除去）。氏名など1行テキスト用
//   - description: p, br, strong, em, a(href) のみ許可。リンクは絶対URLのみ
func NewContentSanitizer() *ContentSanitizer {
	d := bluemonday.NewPolicy()
	d.AllowElements("p", "br", "strong", "em")
	d.AllowAttrs("href").OnElements("a")
	d.AllowStandardURLs()
	d.AllowRelativeURLs(false)
	d.AddTargetBlankToFullyQualifiedLinks(true)
	d.RequireNoReferrerOnLinks(true)

	return &ContentSanitizer{
		strict:      bluemonday.StrictPolicy(),
		description: d,
	}
}

// PlainText は全てのタグを除去したテキストを返す。
// StrictPolicyはエンティティをエスケープして返すため、テンプレート側の
// 二重エスケープを避けるためにアンエスケープしてから返す。
func (s *ContentSanitizer) PlainText(raw string) string {
	cleaned := s.strict.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// Description は許可タグのみを残したHTMLを返す。
func (s *ContentSanitizer) Description(raw string) string {
	return s.description.Sanitize(raw)
}

// compile-time interface check
var _ TextSanitizer = (*ContentSanitizer)(nil)
