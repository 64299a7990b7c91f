package mapping

import (
	"slices"
	"strings"

	"github.com/lysyi3m/listing-comb/app/tree"
)

// fieldKeywords drive gap filling for fields a suggestion left empty.
var fieldKeywords = map[FieldName][]string{
	FieldExternalID: {"guid", "id", "ref", "reference"},
	FieldPrice:      {"price", "amount", "cost"},
	FieldCurrency:   {"currency"},
	FieldImages:     {"image", "photo", "picture", "gallery", "media"},
	FieldBedrooms:   {"bedroom", "bed"},
	FieldBathrooms:  {"bathroom", "bath"},
	FieldAreaSqm:    {"sqm", "area", "size"},
	FieldCity:       {"city", "town", "location", "region"},
	FieldCountry:    {"country"},
}

// Refine aligns a suggested mapping with the paths a document really has.
// The root is suffix-matched and promoted to its repeated child; each
// field is pointed at "<root>.<leaf>" or a suffix match when its own path
// is missing; empty fields are filled by keyword from paths under the root.
func Refine(cfg Config, discovered []string) Config {
	out := cfg.Clone()

	if out.RootPath != "" {
		containers := Expand(discovered)
		if !slices.Contains(containers, out.RootPath) {
			if match, ok := SuffixMatch(out.RootPath, containers); ok {
				out.RootPath = match
			}
		}
		out.RootPath = PromotePath(out.RootPath, discovered)
	}

	for f, p := range out.Fields {
		if p == "" || slices.Contains(discovered, p) {
			continue
		}
		if out.RootPath != "" {
			ideal := tree.Join(out.RootPath, lastSegment(p))
			if slices.Contains(discovered, ideal) {
				out.Fields[f] = ideal
				continue
			}
		}
		if match, ok := SuffixMatch(p, discovered); ok {
			out.Fields[f] = match
		}
	}

	for _, f := range Fields {
		if out.Fields[f] != "" {
			continue
		}
		keywords, ok := fieldKeywords[f]
		if !ok {
			continue
		}
		if match, found := keywordMatch(keywords, out.RootPath, discovered); found {
			out.Fields[f] = match
		}
	}

	return out
}

func keywordMatch(keywords []string, rootPath string, discovered []string) (string, bool) {
	for _, p := range discovered {
		if rootPath != "" && !strings.HasPrefix(p, rootPath+tree.PathSeparator) {
			continue
		}
		lower := strings.ToLower(p)
		singular := strings.TrimSuffix(lower, "s")
		for _, k := range keywords {
			if strings.HasSuffix(lower, k) || strings.HasSuffix(singular, k) || strings.Contains(lower, "."+k+".") || strings.HasSuffix(lower, ":"+k) {
				return p, true
			}
		}
	}
	return "", false
}
