package folio

import (
	"fmt"
	"strings"
	"unicode"
)

// Slugify converts a title or tag name to a URL-safe slug: lowercase,
// only [a-z0-9-], single hyphens, no leading or trailing hyphen.
// It is a total function; input with no usable characters yields "".
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	hyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case unicode.IsSpace(r), r == '-', r == '_':
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
		// Everything else is dropped without producing a hyphen.
	}
	return strings.TrimRight(b.String(), "-")
}

// maxSlugAttempts bounds the unique-slug suffix loop and the optimistic
// insert retry loop. Hitting it means something other than ordinary title
// collisions is going on.
const maxSlugAttempts = 100

// UniqueSlug returns base, or base-2, base-3, ... until no other post uses
// the candidate. excludeID lets an edited post keep its own slug; pass 0
// for new posts. The check is advisory: concurrent creators can still race
// past it, which the posts.slug UNIQUE constraint catches at insert time.
func (s *Store) UniqueSlug(base string, excludeID int64) (string, error) {
	if base == "" {
		base = "post"
	}
	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		taken, err := s.SlugTaken(candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("folio: no free slug for %q after %d attempts", base, maxSlugAttempts)
}
