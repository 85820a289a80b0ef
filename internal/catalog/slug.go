package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL-safe identifier of a module title.
//
// The title is lower-cased, " & " becomes "-", every run of characters outside [a-z0-9]
// collapses to a single "-", and leading/trailing dashes are trimmed.
func Slugify(title string) string {
	s := cases.Lower(language.Und).String(title)
	s = strings.ReplaceAll(s, " & ", "-")
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
