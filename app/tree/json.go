package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MarshalJSON writes the map with its keys in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Value converts n into plain maps, slices and strings.
func Value(n Node) any {
	switch v := n.(type) {
	case *Map:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = Value(v.values[k])
		}
		return out
	case List:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Value(item)
		}
		return out
	case Scalar:
		return string(v)
	}
	return nil
}

// Canonical encodes n with sorted map keys, so equal trees encode equally
// regardless of key order.
func Canonical(n Node) ([]byte, error) {
	return json.Marshal(Value(n))
}

// DecodeJSON reads a JSON document into a tree, keeping object key order.
// Numbers and booleans become scalars; null becomes an empty scalar.
func DecodeJSON(data []byte) (Node, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	n, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	if _, err := d.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return n, nil
}

func decodeValue(d *json.Decoder) (Node, error) {
	tok, err := d.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for d.More() {
				keyTok, err := d.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				v, err := decodeValue(d)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			if _, err := d.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := List{}
			for d.More() {
				v, err := decodeValue(d)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := d.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return Scalar(t), nil
	case json.Number:
		return Scalar(t.String()), nil
	case bool:
		if t {
			return Scalar("true"), nil
		}
		return Scalar("false"), nil
	case nil:
		return Scalar(""), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
