package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Whitespace characters to normalize
	whitespaceChars = regexp.MustCompile(`[\r\n\t]`)
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// UnknownCategory names the file of a category that sanitizes to nothing.
const UnknownCategory = "unknown"

const maxCategoryLength = 200

// SanitizeCategory turns a category value into a safe file name stem.
// Ordinary names such as "liveboard" or "vehicle_info" are returned unchanged;
// path separators and reserved characters are removed so that a category
// can never address a file outside the output directory.
//
// Sanitizing a sanitized name returns it unchanged. Distinct categories may
// share a name, e.g. "live:board" and "liveboard".
func SanitizeCategory(category string) string {
	name := whitespaceChars.ReplaceAllString(category, " ")
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = multipleSpaces.ReplaceAllString(name, " ")

	// "." and ".." would escape into or alias the directory itself
	name = strings.Trim(name, ". ")
	name = strings.Trim(TruncateUTF8(name, maxCategoryLength), ". ")

	if name == "" {
		return UnknownCategory
	}
	return name
}

// TruncateUTF8 returns at most the first n bytes of s without splitting a
// multi-byte character.
func TruncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
