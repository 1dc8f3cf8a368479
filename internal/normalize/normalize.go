// Package normalize canonicalizes user-entered place text for lookups and matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// City canonicalizes a city name for catalog lookup.
// "  上海市 " -> "上海"; full-width letters are folded to ASCII by NFKC.
func City(s string) string {
	s = collapseSpace(norm.NFKC.String(s))
	if r := []rune(s); len(r) > 2 && r[len(r)-1] == '市' {
		s = string(r[:len(r)-1])
	}
	return s
}

// Fold returns a case-folded NFKC form for case-insensitive substring matching.
func Fold(s string) string {
	return folder.String(norm.NFKC.String(s))
}

// ContainsFold reports whether needle occurs in haystack ignoring case and width.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}

// District extracts the district ("浦东新区", "通州区", "崇明县") from a
// Chinese street address. Returns "" when the address carries none.
func District(address string) string {
	r := []rune(strings.TrimSpace(norm.NFKC.String(address)))

	start := 0
	for i := 0; i < len(r) && i < 6; i++ {
		if r[i] == '市' || r[i] == '省' {
			start = i + 1
		}
	}

	for i := start; i < len(r) && i-start < 8; i++ {
		if r[i] == '区' || r[i] == '县' {
			if i == start {
				return ""
			}
			return string(r[start : i+1])
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
