package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/listing-comb/app/tree"
)

// DefaultSampleSize bounds the part of a document used for path discovery.
const DefaultSampleSize = 512 * 1024

// Document types reported for fetched feeds.
const (
	DocumentRSS     = "rss"
	DocumentAtom    = "atom"
	DocumentJSON    = "json"
	DocumentUnknown = "unknown"
)

// TrimSample cuts raw to at most limit bytes, backing up to the last
// complete tag so no partial markup reaches the loader.
func TrimSample(raw []byte, limit int) []byte {
	if limit <= 0 || len(raw) <= limit {
		return raw
	}
	cut := raw[:limit]
	i := bytes.LastIndexByte(cut, '>')
	if i < 0 {
		return nil
	}
	return cut[:i+1]
}

// DiscoverSample loads a possibly truncated document and returns its
// structural paths.
func DiscoverSample(raw []byte, limit int) ([]string, error) {
	doc, err := tree.LoadPartial(TrimSample(raw, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load sample: %w", err)
	}
	return tree.Discover(doc), nil
}

func DetectDocumentType(data []byte) string {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		return DocumentRSS
	case gofeed.FeedTypeAtom:
		return DocumentAtom
	case gofeed.FeedTypeJSON:
		return DocumentJSON
	}
	return DocumentUnknown
}
