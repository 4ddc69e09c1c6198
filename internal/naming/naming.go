// Package naming derives filesystem-safe identifiers from site URLs.
//
// The identifiers double as state keys, so any change here invalidates the
// resume history of existing state documents.
package naming

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Fallback is used when a URL sanitizes to nothing.
const Fallback = "unnamed"

// maxExtensionLen is the longest trailing label kept as a dotted suffix.
const maxExtensionLen = 4

// FolderName maps a raw URL to a stable, filesystem-safe name.
//
// The scheme and trailing slashes are stripped, path-illegal characters and
// path separators become underscores, dots become underscores except before a
// short alphabetic final label (example.com stays example.com, www.example.com
// becomes www_example.com), and runs of underscores are collapsed.
// FolderName(FolderName(u)) == FolderName(u) for every u.
func FolderName(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.Index(s, "://"); i >= 0 && isScheme(s[:i]) {
		s = s[i+3:]
	}
	s = strings.TrimRight(s, "/")

	s = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`<>:"|?*/\`, r):
			return '_'
		case unicode.IsSpace(r), unicode.IsControl(r):
			return '_'
		}
		return r
	}, s)

	s = collapseDots(s)
	s = collapseUnderscores(s)
	s = strings.Trim(s, "_.")
	if s == "" {
		return Fallback
	}
	return s
}

// TaskFolder returns the per-date folder name for a URL.
func TaskFolder(rawURL, date string) string {
	return FolderName(rawURL) + "_up_to_" + date
}

// TaskPath joins the task folder onto an output directory.
func TaskPath(outputDir, rawURL, date string) string {
	return filepath.Join(outputDir, TaskFolder(rawURL, date))
}

func collapseDots(s string) string {
	parts := strings.Split(s, ".")
	if len(parts) == 1 {
		return s
	}
	last := parts[len(parts)-1]
	if isExtension(last) {
		domain := strings.Join(parts[:len(parts)-1], "_")
		if domain != "" {
			return domain + "." + last
		}
	}
	return strings.ReplaceAll(s, ".", "_")
}

func collapseUnderscores(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := false
	for _, r := range s {
		if r == '_' {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isExtension(s string) bool {
	if s == "" || len(s) > maxExtensionLen {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
