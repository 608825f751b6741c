package provider

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const fallbackFilename = "untitled"

// reserved are the characters which cannot appear in a filename on at
// least one of the filesystems we write to.
var reserved = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", " -",
	"*", "_",
	"?", "",
	"\"", "'",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename makes the derived display name safe to use as a file
// name: it is NFC normalized, reserved characters are replaced, control
// characters dropped, and leading/trailing dots and spaces are trimmed.
func SanitizeFilename(name string) string {
	name = reserved.Replace(norm.NFC.String(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	name = strings.Trim(name, ". ")
	if name == "" {
		return fallbackFilename
	}

	return name
}
