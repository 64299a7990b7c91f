package feed

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const slugSuffixLen = 8

// Slug builds a URL-safe listing slug from its title and external id,
// suffixed with the start of the listing id to keep it unique.
func Slug(title, externalID, listingID string) string {
	base := slugify(title + " " + externalID)

	suffix := strings.ReplaceAll(listingID, "-", "")
	if len(suffix) > slugSuffixLen {
		suffix = suffix[:slugSuffixLen]
	}

	switch {
	case base == "":
		return suffix
	case suffix == "":
		return base
	}
	return base + "-" + suffix
}

func slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
