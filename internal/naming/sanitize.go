package naming

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// A token is cut at MaxTokenLen runes or MaxTokenBytes bytes, whichever
// comes first. The byte cap leaves room within the usual 255 byte name limit
// for the prefix, a ten digit number and the longest suffix.
const (
	MaxTokenLen   = 200
	MaxTokenBytes = 200
)

// Sanitize turns a human title into a deterministic file name token.
func Sanitize(title string) string {
	title = norm.NFC.String(strings.TrimSpace(title))

	var b strings.Builder
	inSpace := false
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
		inSpace = false
	}

	return truncate(strings.TrimLeft(b.String(), "._"))
}

// truncate cuts s on a rune boundary.
func truncate(s string) string {
	n := 0
	for i, r := range s {
		if n == MaxTokenLen || i+utf8.RuneLen(r) > MaxTokenBytes {
			return s[:i]
		}
		n++
	}
	return s
}

// LinkToken derives a token from a URL's path and its "si" share parameter,
// for runs that name outputs after the link instead of the title.
func LinkToken(locator string) string {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil || u.Host == "" {
		return Sanitize(locator)
	}
	var parts []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if v := u.Query().Get("v"); v != "" {
		parts = append(parts, v)
	}
	if si := u.Query().Get("si"); si != "" {
		parts = append(parts, si)
	}
	if len(parts) == 0 {
		parts = append(parts, u.Host)
	}
	return Sanitize(strings.Join(parts, "_"))
}
