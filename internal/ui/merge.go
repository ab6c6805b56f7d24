package ui

import (
	"sort"
	"strings"
)

// Merge はクラス名の断片を結合し、同じユーティリティグループで衝突するクラスを
// 後勝ちで解決する。
//
// 受け付ける断片は string, []string, map[string]bool, []any, bool, nil。
// bool と nil は無視される。map はキーの辞書順で展開され、値が true のものだけが残る。
// 出力順は生き残った各クラスの最後の出現位置に従う。
func Merge(fragments ...any) string {
	var classes []string
	for _, f := range fragments {
		classes = collect(classes, f)
	}

	entries := make([]classEntry, 0, len(classes))
	for _, c := range classes {
		e := parseClass(c)
		kept := entries[:0]
		for _, prev := range entries {
			if e.overrides(prev) {
				continue
			}
			kept = append(kept, prev)
		}
		entries = append(kept, e)
	}

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.class
	}
	return strings.Join(out, " ")
}

func collect(dst []string, f any) []string {
	switch v := f.(type) {
	case nil, bool:
		return dst
	case string:
		return append(dst, strings.Fields(v)...)
	case []string:
		for _, s := range v {
			dst = append(dst, strings.Fields(s)...)
		}
	case map[string]bool:
		keys := make([]string, 0, len(v))
		for k, ok := range v {
			if ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			dst = append(dst, strings.Fields(k)...)
		}
	case []any:
		for _, inner := range v {
			dst = collect(dst, inner)
		}
	}
	return dst
}

type classEntry struct {
	class string
	// scope はソート済みバリアント接頭辞と重要度マーカー。
	scope string
	group string
	key   string
}

func (e classEntry) overrides(prev classEntry) bool {
	if e.scope != prev.scope {
		return false
	}
	if e.key == prev.key {
		return true
	}
	if e.group == "" || prev.group == "" {
		return false
	}
	for _, g := range conflictingGroups[e.group] {
		if g == prev.group {
			return true
		}
	}
	return false
}

func parseClass(class string) classEntry {
	parts := splitVariants(class)
	base := parts[len(parts)-1]
	variants := append([]string(nil), parts[:len(parts)-1]...)
	sort.Strings(variants)

	important := false
	if strings.HasPrefix(base, "!") {
		important = true
		base = base[1:]
	} else if strings.HasSuffix(base, "!") {
		important = true
		base = base[:len(base)-1]
	}

	scope := strings.Join(variants, ":")
	if important {
		scope += "!"
	}

	group := classify(strings.TrimPrefix(base, "-"))
	key := group
	if group == "" {
		key = "=" + base
	}
	return classEntry{class: class, scope: scope, group: group, key: key}
}

// splitVariants は角括弧の外側にある ':' でクラスを分割する。
func splitVariants(class string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(class); i++ {
		switch class[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 {
				parts = append(parts, class[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, class[start:])
}
