package mapping

import "strings"

// PathRule drops discovered paths that are feed metadata rather than
// listing data.
type PathRule struct {
	Prefixes []string
	Contains []string
	Suffixes []string
}

// DefaultPathRule matches XML declarations, namespace attributes and the
// usual RSS channel bookkeeping.
var DefaultPathRule = PathRule{
	Prefixes: []string{"?xml"},
	Contains: []string{"@_xmlns", "@_version", "@_encoding", "atom:link", "sy:update"},
	Suffixes: []string{"generator", "lastBuildDate"},
}

func (r PathRule) Excludes(path string) bool {
	for _, p := range r.Prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, c := range r.Contains {
		if strings.Contains(path, c) {
			return true
		}
	}
	for _, s := range r.Suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// FilterPaths returns the paths worth offering when editing a mapping.
// With a root path only paths containing it are kept, so a relative root
// such as "channel.item" still selects "rss.channel.item.title".
func FilterPaths(paths []string, rootPath string) []string {
	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		if DefaultPathRule.Excludes(p) {
			continue
		}
		if rootPath != "" && !strings.Contains(p, rootPath) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}
