package feed

import (
	"strings"

	"github.com/lysyi3m/listing-comb/app/mapping"
	"github.com/lysyi3m/listing-comb/app/tree"
)

// Reasons reported for an extraction that found no records.
const (
	ReasonRootUnresolved = "root path did not resolve"
	ReasonNoHeuristic    = "no repeated item element found"
	ReasonEmptyRoot      = "root resolved to an empty node"
	ReasonRootNotRecord  = "root resolved to a plain value"
)

type Extraction struct {
	Records   []*tree.Map
	RootPath  string // resolved path, empty when found heuristically
	Heuristic bool
	Reason    string
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Run finds the repeating listing node. A configured root path is
// resolved first; when it is absent or unresolved the immediate children
// of the document root are scanned for well-known item names.
func (e *Extractor) Run(doc *tree.Map, rootPath string) Extraction {
	if rootPath != "" {
		n, resolved, ok := mapping.ResolveRoot(doc, rootPath, tree.Discover(doc))
		if ok {
			records, reason := recordsOf(n)
			return Extraction{Records: records, RootPath: resolved, Reason: reason}
		}
	}

	ext := Extraction{Heuristic: true}
	ext.Records = e.heuristic(doc)
	if len(ext.Records) == 0 {
		ext.Reason = ReasonNoHeuristic
		if rootPath != "" {
			ext.Reason = ReasonRootUnresolved
		}
	}
	return ext
}

func (e *Extractor) heuristic(doc *tree.Map) []*tree.Map {
	if doc.Len() != 1 {
		return nil
	}
	root, _ := doc.Get(doc.Keys()[0])
	m, ok := root.(*tree.Map)
	if !ok {
		return nil
	}

	var records []*tree.Map
	for _, key := range m.Keys() {
		if !isRepeatedName(key) {
			continue
		}
		child, _ := m.Get(key)
		found, _ := recordsOf(child)
		records = append(records, found...)
	}
	return records
}

func recordsOf(n tree.Node) ([]*tree.Map, string) {
	switch v := n.(type) {
	case tree.List:
		records := make([]*tree.Map, 0, len(v))
		for _, item := range v {
			if r := asRecord(item); r != nil {
				records = append(records, r)
			}
		}
		if len(records) == 0 {
			return nil, ReasonEmptyRoot
		}
		return records, ""
	case *tree.Map:
		if v.Len() == 0 {
			return nil, ReasonEmptyRoot
		}
		return []*tree.Map{v}, ""
	case tree.Scalar:
		if strings.TrimSpace(string(v)) == "" {
			return nil, ReasonEmptyRoot
		}
		return nil, ReasonRootNotRecord
	}
	return nil, ReasonEmptyRoot
}

// asRecord wraps a text-only repetition so it can still be mapped.
func asRecord(n tree.Node) *tree.Map {
	switch v := n.(type) {
	case *tree.Map:
		return v
	case tree.Scalar:
		if strings.TrimSpace(string(v)) == "" {
			return nil
		}
		m := tree.NewMap()
		m.Set(tree.TextKey, v)
		return m
	}
	return nil
}

func isRepeatedName(key string) bool {
	for _, name := range mapping.RepeatedNames {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}
