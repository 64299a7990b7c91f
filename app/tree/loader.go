package tree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ParseError reports a malformed document.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed document at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errNoRoot = errors.New("no root element")

type frame struct {
	name    string
	m       *Map
	complex bool
	text    strings.Builder
}

// Load parses an XML document into a tree whose single top-level key is
// the root element name.
func Load(data []byte) (*Map, error) {
	return load(data, true)
}

// LoadPartial parses a possibly truncated document. Elements still open at
// EOF are closed, and stray end tags are ignored.
func LoadPartial(data []byte) (*Map, error) {
	return load(data, false)
}

func load(data []byte, strict bool) (*Map, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity
	d.Strict = strict

	doc := NewMap()
	var stack []*frame

	closeTop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := top.node()
		if len(stack) == 0 {
			doc.Add(top.name, n)
			return
		}
		parent := stack[len(stack)-1]
		parent.complex = true
		parent.m.Add(top.name, n)
	}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !strict && len(stack) > 0 {
				break
			}
			return nil, &ParseError{Offset: d.InputOffset(), Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && doc.Len() > 0 && strict {
				return nil, &ParseError{Offset: d.InputOffset(), Err: fmt.Errorf("second root element <%s>", qualified(t.Name))}
			}
			f := &frame{name: qualified(t.Name), m: NewMap()}
			for _, a := range t.Attr {
				f.m.Set(AttrPrefix+qualified(a.Name), Scalar(a.Value))
				f.complex = true
			}
			stack = append(stack, f)
		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 {
				if strict {
					return nil, &ParseError{Offset: d.InputOffset(), Err: fmt.Errorf("unexpected end element </%s>", name)}
				}
				continue
			}
			if stack[len(stack)-1].name != name {
				if strict {
					return nil, &ParseError{
						Offset: d.InputOffset(),
						Err:    fmt.Errorf("element <%s> closed by </%s>", stack[len(stack)-1].name, name),
					}
				}
				if !open(stack, name) {
					continue
				}
				for stack[len(stack)-1].name != name {
					closeTop()
				}
			}
			closeTop()
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if len(stack) > 0 {
		if strict {
			return nil, &ParseError{Offset: d.InputOffset(), Err: fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].name)}
		}
		for len(stack) > 0 {
			closeTop()
		}
	}

	if doc.Len() == 0 {
		return nil, &ParseError{Offset: d.InputOffset(), Err: errNoRoot}
	}

	return doc, nil
}

func (f *frame) node() Node {
	text := strings.TrimSpace(f.text.String())
	if !f.complex {
		return Scalar(text)
	}
	if text != "" {
		f.m.Set(TextKey, Scalar(text))
	}
	return f.m
}

func open(stack []*frame, name string) bool {
	for _, f := range stack {
		if f.name == name {
			return true
		}
	}
	return false
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
