package tree

import (
	"slices"
	"strings"
)

// PathSeparator joins path segments.
const PathSeparator = "."

// Discover returns every distinct structural path in n, sorted. List
// elements share the path of their list, and the list path itself is
// included.
func Discover(n Node) []string {
	seen := make(map[string]struct{})
	discover(n, "", seen)

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func discover(n Node, path string, seen map[string]struct{}) {
	switch v := n.(type) {
	case *Map:
		for _, k := range v.keys {
			discover(v.values[k], Join(path, k), seen)
		}
	case List:
		if path != "" {
			seen[path] = struct{}{}
		}
		for _, item := range v {
			discover(item, path, seen)
		}
	case Scalar:
		if path != "" {
			seen[path] = struct{}{}
		}
	}
}

// Join appends key to path.
func Join(path, key string) string {
	if path == "" {
		return key
	}
	return path + PathSeparator + key
}

// Split breaks a path into its segments, dropping empty ones.
func Split(path string) []string {
	parts := strings.Split(path, PathSeparator)
	return slices.DeleteFunc(parts, func(s string) bool { return s == "" })
}

// Lookup follows path from n. A key segment applied to a List is applied
// to each element and the results are collected into a List.
func Lookup(n Node, path string) (Node, bool) {
	cur := n
	for _, seg := range Split(path) {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

func step(n Node, key string) (Node, bool) {
	switch v := n.(type) {
	case *Map:
		return v.Get(key)
	case List:
		var out List
		for _, item := range v {
			child, ok := step(item, key)
			if !ok {
				continue
			}
			if nested, isList := child.(List); isList {
				out = append(out, nested...)
			} else {
				out = append(out, child)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	}
	return nil, false
}
