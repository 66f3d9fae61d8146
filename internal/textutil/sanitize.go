package textutil

import (
	"path/filepath"
	"strings"
)

var unsafeNameChars = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-",
	"?", "", "\"", "", "<", "", ">", "", "|", "",
)

// SanitizeFileName makes a server-supplied name safe to create under the
// output directory. Path separators become dashes, shell-hostile characters
// are dropped, and leading dots are stripped so the result is never hidden
// and never a parent reference.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(unsafeNameChars.Replace(strings.TrimSpace(name)))
	return strings.TrimLeft(name, ". ")
}

// SanitizeToken reduces value to lowercase ASCII letters, digits, dashes and
// underscores. Runs of anything else collapse to one underscore. Empty
// results become "unknown".
func SanitizeToken(value string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		keep := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		if !keep {
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
			continue
		}
		b.WriteRune(r)
		lastUnderscore = r == '_'
	}
	if out := strings.Trim(b.String(), "_-"); out != "" {
		return out
	}
	return "unknown"
}

// EnsureExtension appends ext unless name already ends with it, ignoring case.
func EnsureExtension(name, ext string) string {
	if ext == "" {
		return name
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.EqualFold(filepath.Ext(name), ext) {
		return name
	}
	return name + ext
}
