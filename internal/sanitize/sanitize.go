// Package sanitize escapes user-submitted text and filenames.
package sanitize

import (
	"regexp"
	"strings"
)

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// HTML escapes & < > " ' and / so stored text can never be rendered as markup.
func HTML(s string) string {
	return htmlReplacer.Replace(s)
}

var (
	traversal   = regexp.MustCompile(`\.\./|~|/|\\`)
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// MaxFilenameLength bounds sanitized filenames.
const MaxFilenameLength = 255

// Filename strips path components and anything outside [A-Za-z0-9._-].
func Filename(name string) string {
	name = traversal.ReplaceAllString(name, "")
	name = unsafeChars.ReplaceAllString(name, "")
	if len(name) > MaxFilenameLength {
		name = name[:MaxFilenameLength]
	}
	return name
}
