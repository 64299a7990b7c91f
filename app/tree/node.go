// Package tree holds the generic document tree built from feed documents
// and the structural operations over it: path discovery and path lookup.
package tree

import "strings"

// AttrPrefix is prepended to XML attribute names so attributes show up as
// ordinary child keys.
const AttrPrefix = "@_"

// TextKey holds the character data of an element that also carries
// attributes or child elements.
const TextKey = "#text"

// Node is one of *Map, List or Scalar.
type Node interface {
	node()
}

// Map is an ordered string-keyed node.
type Map struct {
	keys   []string
	values map[string]Node
}

// List is a sequence of repeated nodes sharing one structural path.
type List []Node

// Scalar is a leaf value.
type Scalar string

func (*Map) node() {}
func (List) node() {}
func (Scalar) node() {}

func NewMap() *Map {
	return &Map{values: make(map[string]Node)}
}

// Set stores v under key, keeping the original position when key exists.
func (m *Map) Set(key string, v Node) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Add stores v under key, turning repeated keys into a List.
func (m *Map) Add(key string, v Node) {
	existing, ok := m.values[key]
	if !ok {
		m.Set(key, v)
		return
	}
	if list, isList := existing.(List); isList {
		m.values[key] = append(list, v)
		return
	}
	m.values[key] = List{existing, v}
}

func (m *Map) Get(key string) (Node, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Text returns the textual value of n: the scalar itself, or the #text
// child of a map. Lists and maps without text yield "".
func Text(n Node) string {
	switch v := n.(type) {
	case Scalar:
		return strings.TrimSpace(string(v))
	case *Map:
		if t, ok := v.Get(TextKey); ok {
			if s, isScalar := t.(Scalar); isScalar {
				return strings.TrimSpace(string(s))
			}
		}
	}
	return ""
}

// Flatten joins every scalar under n in document order, separated by
// single spaces.
func Flatten(n Node) string {
	var b strings.Builder
	flatten(n, &b)
	return b.String()
}

func flatten(n Node, b *strings.Builder) {
	switch v := n.(type) {
	case Scalar:
		s := strings.TrimSpace(string(v))
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	case List:
		for _, item := range v {
			flatten(item, b)
		}
	case *Map:
		for _, k := range v.keys {
			if name, ok := strings.CutPrefix(k, AttrPrefix); ok {
				if s, isScalar := v.values[k].(Scalar); isScalar {
					if b.Len() > 0 {
						b.WriteByte(' ')
					}
					b.WriteString(name + `="` + string(s) + `"`)
					continue
				}
			}
			flatten(v.values[k], b)
		}
	}
}
