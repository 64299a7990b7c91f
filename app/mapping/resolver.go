package mapping

import (
	"slices"
	"strings"

	"github.com/lysyi3m/listing-comb/app/tree"
)

// Resolve finds the node a configured path refers to. It tries, in order,
// the path verbatim, a discovered path ending with it, and then the same
// two steps with the leading segment dropped, repeating until a single
// segment is left. It returns the node and the path that matched.
func Resolve(root tree.Node, path string, discovered []string) (tree.Node, string, bool) {
	for p := strings.Trim(path, tree.PathSeparator); p != ""; p = trimFirst(p) {
		if n, ok := tree.Lookup(root, p); ok {
			return n, p, true
		}
		if match, ok := SuffixMatch(p, discovered); ok {
			if n, ok := tree.Lookup(root, match); ok {
				return n, match, true
			}
		}
	}
	return nil, "", false
}

// ResolveRoot resolves the item root path and promotes a container to its
// repeated child ("rss.channel" becomes "rss.channel.item").
func ResolveRoot(doc tree.Node, rootPath string, discovered []string) (tree.Node, string, bool) {
	n, p, ok := Resolve(doc, rootPath, Expand(discovered))
	if !ok {
		return nil, "", false
	}
	if m, isMap := n.(*tree.Map); isMap {
		if key, found := repeatedChild(m.Keys()); found {
			child, _ := m.Get(key)
			return child, tree.Join(p, key), true
		}
	}
	return n, p, true
}

// Expand adds every container prefix of the discovered paths, so that a
// root path naming a plain element ("rss.channel") can be suffix-matched.
func Expand(discovered []string) []string {
	seen := make(map[string]struct{}, len(discovered))
	for _, p := range discovered {
		for prefix := p; prefix != ""; {
			if _, ok := seen[prefix]; ok {
				break
			}
			seen[prefix] = struct{}{}
			i := strings.LastIndex(prefix, tree.PathSeparator)
			if i < 0 {
				break
			}
			prefix = prefix[:i]
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// SuffixMatch returns the shortest discovered path equal to path or ending
// with "."+path. Matches are whole segments only.
func SuffixMatch(path string, discovered []string) (string, bool) {
	best := ""
	for _, p := range discovered {
		if p != path && !strings.HasSuffix(p, tree.PathSeparator+path) {
			continue
		}
		if best == "" || len(p) < len(best) {
			best = p
		}
	}
	return best, best != ""
}

// PromotePath returns path extended by a repeated child name when the
// discovered set holds such a child.
func PromotePath(path string, discovered []string) string {
	for _, name := range RepeatedNames {
		candidate := tree.Join(path, name)
		if slices.Contains(discovered, candidate) || hasPrefixPath(discovered, candidate) {
			return candidate
		}
	}
	return path
}

func repeatedChild(keys []string) (string, bool) {
	for _, name := range RepeatedNames {
		for _, k := range keys {
			if strings.EqualFold(k, name) {
				return k, true
			}
		}
	}
	return "", false
}

func hasPrefixPath(discovered []string, path string) bool {
	prefix := path + tree.PathSeparator
	for _, p := range discovered {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func trimFirst(path string) string {
	_, rest, found := strings.Cut(path, tree.PathSeparator)
	if !found {
		return ""
	}
	return rest
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, tree.PathSeparator); i >= 0 {
		return path[i+1:]
	}
	return path
}
