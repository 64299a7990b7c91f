package feed

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/lysyi3m/listing-comb/app/mapping"
	"github.com/lysyi3m/listing-comb/app/tree"
)

// candidateKeys are tried, in order, for fields the mapping leaves unset.
var candidateKeys = map[mapping.FieldName][]string{
	mapping.FieldExternalID:   {"id", "reference", "@_id"},
	mapping.FieldTitle:        {"title", "name", "headline"},
	mapping.FieldDescription:  {"description", "desc", "summary"},
	mapping.FieldPrice:        {"price", "amount"},
	mapping.FieldCurrency:     {"currency"},
	mapping.FieldImages:       {"images", "photos", "pictures", "gallery"},
	mapping.FieldCity:         {"city", "town"},
	mapping.FieldCountry:      {"country"},
	mapping.FieldAddressLine1: {"address"},
	mapping.FieldBedrooms:     {"bedrooms"},
	mapping.FieldBathrooms:    {"bathrooms"},
	mapping.FieldAreaSqm:      {"areaSqm"},
}

// imageKeys hold the URL of a single image element.
var imageKeys = []string{tree.TextKey, "url", "@_url", "src", "@_src", "href", "@_href"}

var (
	priceRe    = regexp.MustCompile(`(€|£|\$|eur|gbp|usd)\s?([0-9][0-9,.]*)`)
	bedroomsRe = regexp.MustCompile(`(\d+)\s*(?:bedroom|bed|bd)`)
	bathsRe    = regexp.MustCompile(`(\d+)\s*(?:bathroom|bath|bth)`)
	areaRe     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:sqm|m2|m²|sq\.?\s*m|square\s*met(?:er|re))`)
	imageSrcRe = regexp.MustCompile(`(?i)src=["'](https?://[^"']+\.(?:jpg|jpeg|png|webp))["']`)
	numberRe   = regexp.MustCompile(`[0-9][0-9,.]*`)
)

var currencySymbols = map[string]string{
	"€":   "EUR",
	"£":   "GBP",
	"$":   "USD",
	"eur": "EUR",
	"gbp": "GBP",
	"usd": "USD",
}

type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// Run converts one record into an Item. A configured path that resolves to
// a non-empty value always wins; unset fields fall back to well-known keys
// and then to patterns over the record's text.
func (m *Mapper) Run(record *tree.Map, cfg *mapping.Config, defaultCurrency string) Item {
	r := &recordView{record: record, paths: tree.Discover(record), cfg: cfg}

	item := Item{
		ExternalID:  r.externalID(),
		Title:       r.text(mapping.FieldTitle),
		Description: r.text(mapping.FieldDescription),
		Location: Location{
			City:         r.text(mapping.FieldCity),
			Country:      r.text(mapping.FieldCountry),
			AddressLine1: r.text(mapping.FieldAddressLine1),
		},
		Attributes: record,
	}

	// A Caser keeps state, so each call gets its own.
	folded := cases.Fold().String(tree.Flatten(record))

	priceCurrency := ""
	explicitPrice := false
	if v := r.text(mapping.FieldPrice); v != "" {
		item.Price, explicitPrice = parseAmount(v)
		priceCurrency = symbolCurrency(cases.Fold().String(v))
	}
	if !explicitPrice {
		if match := priceRe.FindStringSubmatch(folded); match != nil {
			item.Price, _ = parseAmount(match[2])
			priceCurrency = currencySymbols[match[1]]
		}
	}

	item.Currency = strings.ToUpper(r.text(mapping.FieldCurrency))
	if item.Currency == "" {
		item.Currency = priceCurrency
	}
	if item.Currency == "" {
		item.Currency = strings.ToUpper(defaultCurrency)
	}
	if item.Currency == "" {
		item.Currency = DefaultCurrency
	}

	item.Bedrooms = r.intField(mapping.FieldBedrooms, bedroomsRe, folded)
	item.Bathrooms = r.intField(mapping.FieldBathrooms, bathsRe, folded)
	item.AreaSqm = r.areaField(folded)

	item.Images = r.images()

	return item
}

type recordView struct {
	record *tree.Map
	paths  []string
	cfg    *mapping.Config
}

// node looks a field up by its configured path, or by candidate keys when
// nothing is configured.
func (r *recordView) node(f mapping.FieldName) (tree.Node, bool) {
	if path := r.cfg.Path(f); path != "" {
		n, _, ok := mapping.Resolve(r.record, path, r.paths)
		if ok && valueString(n) != "" {
			return n, true
		}
		return nil, false
	}
	for _, key := range candidateKeys[f] {
		if f == mapping.FieldExternalID {
			// Identifiers only come from the record's own top level.
			if n, ok := r.record.Get(key); ok && valueString(n) != "" {
				return n, true
			}
			continue
		}
		if n, _, ok := mapping.Resolve(r.record, key, r.paths); ok && valueString(n) != "" {
			return n, true
		}
	}
	return nil, false
}

func (r *recordView) text(f mapping.FieldName) string {
	n, ok := r.node(f)
	if !ok {
		return ""
	}
	return valueString(n)
}

func (r *recordView) externalID() string {
	if id := r.text(mapping.FieldExternalID); id != "" {
		return id
	}
	return UnknownExternalID
}

func (r *recordView) intField(f mapping.FieldName, re *regexp.Regexp, folded string) *int {
	if v := r.text(f); v != "" {
		if tok := numberRe.FindString(v); tok != "" {
			tok, _, _ = strings.Cut(strings.ReplaceAll(tok, ",", ""), ".")
			if n, err := strconv.Atoi(tok); err == nil {
				return &n
			}
		}
	}
	if match := re.FindStringSubmatch(folded); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			return &n
		}
	}
	return nil
}

func (r *recordView) areaField(folded string) *float64 {
	if v := r.text(mapping.FieldAreaSqm); v != "" {
		if a, ok := parseAmount(v); ok {
			return &a
		}
	}
	if match := areaRe.FindStringSubmatch(folded); match != nil {
		if a, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64); err == nil {
			return &a
		}
	}
	return nil
}

func (r *recordView) images() []string {
	images := []string{}
	if n, ok := r.node(mapping.FieldImages); ok {
		images = collectImages(n, false, images)
	}
	if len(images) > 0 {
		return images
	}
	for _, match := range imageSrcRe.FindAllStringSubmatch(tree.Flatten(r.record), -1) {
		if !slices.Contains(images, match[1]) {
			images = append(images, match[1])
		}
	}
	return images
}

// collectImages gathers image URLs from the shapes feeds use: a bare URL,
// an element carrying the URL as text or attribute, a list of those, or a
// container of any of them. Below the top level only URL-like values count.
func collectImages(n tree.Node, nested bool, out []string) []string {
	add := func(s string) []string {
		s = strings.TrimSpace(s)
		if s == "" || nested && !looksLikeURL(s) || slices.Contains(out, s) {
			return out
		}
		return append(out, s)
	}

	switch v := n.(type) {
	case tree.Scalar:
		return add(string(v))
	case tree.List:
		for _, item := range v {
			out = collectImages(item, true, out)
		}
	case *tree.Map:
		for _, key := range imageKeys {
			if child, ok := v.Get(key); ok {
				if s, isScalar := child.(tree.Scalar); isScalar && strings.TrimSpace(string(s)) != "" {
					return add(string(s))
				}
			}
		}
		for _, key := range v.Keys() {
			child, _ := v.Get(key)
			out = collectImages(child, true, out)
		}
	}
	return out
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//")
}

// valueString renders a field value: scalars as-is, elements by their text
// or else their flattened content, lists by their first non-empty entry.
func valueString(n tree.Node) string {
	switch v := n.(type) {
	case tree.Scalar:
		return strings.TrimSpace(string(v))
	case *tree.Map:
		if s := tree.Text(v); s != "" {
			return s
		}
		return tree.Flatten(v)
	case tree.List:
		for _, item := range v {
			if s := valueString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// parseAmount reads the first number in s. Commas are grouping
// separators; several dots are treated the same way.
func parseAmount(s string) (float64, bool) {
	tok := numberRe.FindString(s)
	if tok == "" {
		return 0, false
	}
	tok = strings.ReplaceAll(tok, ",", "")
	if strings.Count(tok, ".") > 1 {
		tok = strings.ReplaceAll(tok, ".", "")
	}
	tok = strings.TrimSuffix(tok, ".")
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func symbolCurrency(folded string) string {
	if match := priceRe.FindStringSubmatch(folded); match != nil {
		return currencySymbols[match[1]]
	}
	for _, sym := range []string{"€", "£", "$"} {
		if strings.Contains(folded, sym) {
			return currencySymbols[sym]
		}
	}
	return ""
}
