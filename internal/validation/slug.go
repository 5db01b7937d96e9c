// slug.go derives and validates URL-safe catalog slugs.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Slugify converts a display name into its catalog slug: lowercase, runs of
// non-alphanumeric characters collapse to single hyphens, no leading or
// trailing hyphen. "My Tool!" becomes "my-tool".
func Slugify(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// ValidateSlug checks that a slug is non-empty, within length bounds, and
// already in canonical form.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if len(slug) > 255 {
		return fmt.Errorf("slug exceeds 255 characters")
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid slug %q: must be lowercase alphanumeric with hyphens", slug)
	}
	return nil
}
