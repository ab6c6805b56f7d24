package ui

import "strings"

// exactGroups は値を持たないユーティリティクラスのグループ。
var exactGroups = map[string]string{
	"block": "display", "inline-block": "display", "inline": "display",
	"flex": "display", "inline-flex": "display", "grid": "display",
	"inline-grid": "display", "table": "display", "table-row": "display",
	"table-cell": "display", "contents": "display", "flow-root": "display",
	"list-item": "display", "hidden": "display",

	"static": "position", "fixed": "position", "absolute": "position",
	"relative": "position", "sticky": "position",

	"visible": "visibility", "invisible": "visibility", "collapse": "visibility",

	"underline": "text-decoration", "overline": "text-decoration",
	"line-through": "text-decoration", "no-underline": "text-decoration",

	"uppercase": "text-transform", "lowercase": "text-transform",
	"capitalize": "text-transform", "normal-case": "text-transform",

	"italic": "font-style", "not-italic": "font-style",
	"truncate": "text-overflow",
	"sr-only": "sr", "not-sr-only": "sr",

	"grow": "grow", "grow-0": "grow", "flex-grow": "grow", "flex-grow-0": "grow",
	"shrink": "shrink", "shrink-0": "shrink", "flex-shrink": "shrink", "flex-shrink-0": "shrink",

	"rounded":    "rounded",
	"shadow":     "shadow",
	"border":     "border-w",
	"ring":       "ring-w",
	"ring-inset": "ring-inset",
	"outline":    "outline-style",
	"transition": "transition",
	"container":  "container",
}

// prefixGroups は接頭辞だけで決まるグループ。長い接頭辞を先に置く。
var prefixGroups = []struct {
	prefix string
	group  string
}{
	{"px-", "px"}, {"py-", "py"}, {"pt-", "pt"}, {"pr-", "pr"},
	{"pb-", "pb"}, {"pl-", "pl"}, {"ps-", "ps"}, {"pe-", "pe"}, {"p-", "p"},
	{"mx-", "mx"}, {"my-", "my"}, {"mt-", "mt"}, {"mr-", "mr"},
	{"mb-", "mb"}, {"ml-", "ml"}, {"ms-", "ms"}, {"me-", "me"}, {"m-", "m"},
	{"space-x-", "space-x"}, {"space-y-", "space-y"},
	{"gap-x-", "gap-x"}, {"gap-y-", "gap-y"}, {"gap-", "gap"},
	{"min-w-", "min-w"}, {"max-w-", "max-w"}, {"w-", "w"},
	{"min-h-", "min-h"}, {"max-h-", "max-h"}, {"h-", "h"}, {"size-", "size"},
	{"inset-x-", "inset-x"}, {"inset-y-", "inset-y"}, {"inset-", "inset"},
	{"top-", "top"}, {"right-", "right"}, {"bottom-", "bottom"}, {"left-", "left"},
	{"start-", "start"}, {"end-", "end"},
	{"z-", "z"}, {"opacity-", "opacity"},
	{"overflow-x-", "overflow-x"}, {"overflow-y-", "overflow-y"}, {"overflow-", "overflow"},
	{"items-", "align-items"}, {"justify-items-", "justify-items"},
	{"justify-self-", "justify-self"}, {"justify-", "justify-content"},
	{"content-", "align-content"}, {"self-", "align-self"},
	{"place-content-", "place-content"}, {"place-items-", "place-items"},
	{"place-self-", "place-self"},
	{"grid-cols-", "grid-cols"}, {"grid-rows-", "grid-rows"}, {"grid-flow-", "grid-flow"},
	{"col-span-", "col-span"}, {"col-start-", "col-start"}, {"col-end-", "col-end"},
	{"row-span-", "row-span"}, {"order-", "order"}, {"basis-", "basis"},
	{"line-clamp-", "line-clamp"}, {"leading-", "leading"}, {"tracking-", "tracking"},
	{"whitespace-", "whitespace"}, {"break-", "word-break"},
	{"align-", "vertical-align"}, {"list-", "list-style"},
	{"decoration-", "decoration"}, {"underline-offset-", "underline-offset"},
	{"cursor-", "cursor"}, {"select-", "user-select"},
	{"pointer-events-", "pointer-events"}, {"resize-", "resize"},
	{"transition-", "transition"}, {"duration-", "duration"},
	{"ease-", "ease"}, {"delay-", "delay"}, {"animate-", "animate"},
	{"aspect-", "aspect"}, {"fill-", "fill"}, {"stroke-", "stroke"},
	{"translate-x-", "translate-x"}, {"translate-y-", "translate-y"},
	{"scale-", "scale"}, {"rotate-", "rotate"},
	{"backdrop-blur-", "backdrop-blur"}, {"blur-", "blur"},
	{"from-", "gradient-from"}, {"via-", "gradient-via"}, {"to-", "gradient-to"},
	{"divide-x-", "divide-x"}, {"divide-y-", "divide-y"},
}

// opacityPrefixes は色とは別グループになる "<prefix>-opacity-*" ユーティリティ。
var opacityPrefixes = []string{"bg", "text", "border", "ring", "divide", "placeholder"}

// conflictingGroups はキーのグループが後から現れたときに取り除かれるグループ。
var conflictingGroups = map[string][]string{
	// text-sm/6 は行の高さも指定する
	"text-size":         {"text-size-leading"},
	"text-size-leading": {"text-size", "leading"},

	"p":  {"px", "py", "pt", "pr", "pb", "pl", "ps", "pe"},
	"px": {"pr", "pl", "ps", "pe"},
	"py": {"pt", "pb"},
	"m":  {"mx", "my", "mt", "mr", "mb", "ml", "ms", "me"},
	"mx": {"mr", "ml", "ms", "me"},
	"my": {"mt", "mb"},

	"inset":   {"inset-x", "inset-y", "top", "right", "bottom", "left", "start", "end"},
	"inset-x": {"right", "left"},
	"inset-y": {"top", "bottom"},
	"size":    {"w", "h"},
	"gap":     {"gap-x", "gap-y"},

	"overflow": {"overflow-x", "overflow-y"},

	"rounded": {
		"rounded-t", "rounded-r", "rounded-b", "rounded-l", "rounded-s", "rounded-e",
		"rounded-tl", "rounded-tr", "rounded-br", "rounded-bl",
		"rounded-ss", "rounded-se", "rounded-ee", "rounded-es",
	},
	"rounded-t": {"rounded-tl", "rounded-tr"},
	"rounded-r": {"rounded-tr", "rounded-br"},
	"rounded-b": {"rounded-br", "rounded-bl"},
	"rounded-l": {"rounded-tl", "rounded-bl"},
	"rounded-s": {"rounded-ss", "rounded-es"},
	"rounded-e": {"rounded-se", "rounded-ee"},

	"border-w": {
		"border-w-x", "border-w-y", "border-w-t", "border-w-r",
		"border-w-b", "border-w-l", "border-w-s", "border-w-e",
	},
	"border-w-x": {"border-w-r", "border-w-l"},
	"border-w-y": {"border-w-t", "border-w-b"},
	"border-color": {
		"border-color-x", "border-color-y", "border-color-t", "border-color-r",
		"border-color-b", "border-color-l", "border-color-s", "border-color-e",
	},
	"border-color-x": {"border-color-r", "border-color-l"},
	"border-color-y": {"border-color-t", "border-color-b"},
}

var (
	textSizes = set("xs", "sm", "base", "lg", "xl", "2xl", "3xl", "4xl", "5xl",
		"6xl", "7xl", "8xl", "9xl")
	textAligns    = set("left", "center", "right", "justify", "start", "end")
	textWraps     = set("wrap", "nowrap", "balance", "pretty")
	fontWeights   = set("thin", "extralight", "light", "normal", "medium", "semibold", "bold", "extrabold", "black")
	shadowSizes   = set("sm", "md", "lg", "xl", "2xl", "inner", "none")
	borderWidths  = set("0", "2", "4", "8")
	borderStyles  = set("solid", "dashed", "dotted", "double", "hidden", "none")
	borderSides   = set("x", "y", "t", "r", "b", "l", "s", "e")
	roundedSides  = set("t", "r", "b", "l", "s", "e", "tl", "tr", "br", "bl", "ss", "se", "ee", "es")
	ringWidths    = set("0", "1", "2", "4", "8")
	outlineStyles = set("none", "dashed", "dotted", "double")
	flexDirection = set("row", "row-reverse", "col", "col-reverse")
	flexWrap      = set("wrap", "wrap-reverse", "nowrap")
	flexValues    = set("1", "auto", "initial", "none")
	objectFits    = set("contain", "cover", "fill", "none", "scale-down")
	bgAttachments = set("fixed", "local", "scroll")
	bgSizes       = set("auto", "cover", "contain")
	bgPositions   = set("bottom", "center", "left", "left-bottom", "left-top",
		"right", "right-bottom", "right-top", "top")
)

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// classify はバリアントと重要度マーカーを除いたクラスのグループを返す。
// 既知のユーティリティでなければ空文字列を返す。
func classify(base string) string {
	if g, ok := exactGroups[base]; ok {
		return g
	}
	for _, p := range opacityPrefixes {
		if strings.HasPrefix(base, p+"-opacity-") {
			return p + "-opacity"
		}
	}

	switch {
	case strings.HasPrefix(base, "text-"):
		return classifyText(base[len("text-"):])
	case strings.HasPrefix(base, "font-"):
		if fontWeights[base[len("font-"):]] {
			return "font-weight"
		}
		return "font-family"
	case strings.HasPrefix(base, "bg-"):
		return classifyBackground(base[len("bg-"):])
	case strings.HasPrefix(base, "border-"):
		return classifyBorder(base[len("border-"):])
	case strings.HasPrefix(base, "rounded-"):
		return classifyRounded(base[len("rounded-"):])
	case strings.HasPrefix(base, "shadow-"):
		v := base[len("shadow-"):]
		if shadowSizes[v] || isArbitrary(v) {
			return "shadow"
		}
		return "shadow-color"
	case strings.HasPrefix(base, "ring-offset-"):
		if isWidth(base[len("ring-offset-"):], ringWidths) {
			return "ring-offset-w"
		}
		return "ring-offset-color"
	case strings.HasPrefix(base, "ring-"):
		if isWidth(base[len("ring-"):], ringWidths) {
			return "ring-w"
		}
		return "ring-color"
	case strings.HasPrefix(base, "outline-offset-"):
		return "outline-offset"
	case strings.HasPrefix(base, "outline-"):
		v := base[len("outline-"):]
		switch {
		case outlineStyles[v]:
			return "outline-style"
		case isWidth(v, ringWidths):
			return "outline-w"
		}
		return "outline-color"
	case strings.HasPrefix(base, "flex-"):
		v := base[len("flex-"):]
		switch {
		case flexDirection[v]:
			return "flex-direction"
		case flexWrap[v]:
			return "flex-wrap"
		case flexValues[v] || isArbitrary(v):
			return "flex"
		}
		return ""
	case strings.HasPrefix(base, "object-"):
		if objectFits[base[len("object-"):]] {
			return "object-fit"
		}
		return "object-position"
	}

	for _, p := range prefixGroups {
		if strings.HasPrefix(base, p.prefix) && len(base) > len(p.prefix) {
			return p.group
		}
	}
	return ""
}

func classifyText(v string) string {
	value, _, withLeading := strings.Cut(v, "/")
	switch {
	case textSizes[value] && withLeading:
		return "text-size-leading"
	case textSizes[value]:
		return "text-size"
	case textAligns[v]:
		return "text-align"
	case v == "ellipsis" || v == "clip":
		return "text-overflow"
	case textWraps[v]:
		return "text-wrap"
	case isArbitrary(v):
		if isLength(v) {
			return "text-size"
		}
		return "text-color"
	}
	return "text-color"
}

func classifyBackground(v string) string {
	switch {
	case bgAttachments[v]:
		return "bg-attachment"
	case bgSizes[v]:
		return "bg-size"
	case bgPositions[v]:
		return "bg-position"
	case v == "repeat" || v == "no-repeat" || strings.HasPrefix(v, "repeat-"):
		return "bg-repeat"
	case v == "none" || strings.HasPrefix(v, "gradient-"):
		return "bg-image"
	case strings.HasPrefix(v, "clip-"):
		return "bg-clip"
	case strings.HasPrefix(v, "origin-"):
		return "bg-origin"
	}
	return "bg-color"
}

func classifyBorder(v string) string {
	switch {
	case isWidth(v, borderWidths):
		return "border-w"
	case borderSides[v]:
		return "border-w-" + v
	case borderStyles[v]:
		return "border-style"
	case v == "collapse" || v == "separate":
		return "border-collapse"
	case strings.HasPrefix(v, "spacing-"):
		return "border-spacing"
	}
	if side, rest, ok := strings.Cut(v, "-"); ok && borderSides[side] {
		if isWidth(rest, borderWidths) {
			return "border-w-" + side
		}
		return "border-color-" + side
	}
	return "border-color"
}

func classifyRounded(v string) string {
	side, _, _ := strings.Cut(v, "-")
	if roundedSides[side] {
		return "rounded-" + side
	}
	return "rounded"
}

func isArbitrary(v string) bool {
	return strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]")
}

func isWidth(v string, known map[string]bool) bool {
	return known[v] || (isArbitrary(v) && isLength(v))
}

// isLength は任意値 [..] が長さを表すかどうかを判定する。
func isLength(v string) bool {
	inner := strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")
	if strings.HasPrefix(inner, "length:") || strings.HasPrefix(inner, "calc(") {
		return true
	}
	if inner == "" || !(inner[0] >= '0' && inner[0] <= '9' || inner[0] == '.') {
		return false
	}
	for _, unit := range []string{"px", "rem", "em", "%", "vh", "vw", "pt", "ch"} {
		if strings.HasSuffix(inner, unit) {
			return true
		}
	}
	return false
}
