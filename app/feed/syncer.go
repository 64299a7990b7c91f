package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/listing-comb/app/database"
	"github.com/lysyi3m/listing-comb/app/tree"
)

var (
	ErrFeedNotFound   = errors.New("feed not found")
	ErrSyncInProgress = errors.New("sync already in progress")
)

type SyncStatus string

const (
	StatusOK       SyncStatus = "ok"
	StatusInactive SyncStatus = "inactive"
	StatusError    SyncStatus = "error"
)

type SyncResult struct {
	Feed         string        `json:"feed"`
	Status       SyncStatus    `json:"status"`
	Total        int           `json:"total"`
	Created      int           `json:"created"`
	Updated      int           `json:"updated"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Reason       string        `json:"reason,omitempty"`
	DocumentType string        `json:"document_type,omitempty"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
	Err          error         `json:"-"`
}

func (r *SyncResult) fail(err error) {
	r.Status = StatusError
	r.Err = err
	r.Error = err.Error()
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

// DocumentFetcher downloads a feed document.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

var _ DocumentFetcher = (*Fetcher)(nil)

// Syncer keeps the stored listings of a feed in step with its remote
// document. Runs for one feed are serialized; distinct feeds run freely.
type Syncer struct {
	feedRepo    database.FeedRepository
	listingRepo database.ListingRepository
	fetcher     DocumentFetcher
	extractor   *Extractor
	mapper      *Mapper
	locks       sync.Map // feed name -> *sync.Mutex
}

func NewSyncer(feedRepo database.FeedRepository, listingRepo database.ListingRepository, fetcher DocumentFetcher) *Syncer {
	return &Syncer{
		feedRepo:    feedRepo,
		listingRepo: listingRepo,
		fetcher:     fetcher,
		extractor:   NewExtractor(),
		mapper:      NewMapper(),
	}
}

func (s *Syncer) lock(feedName string) (func(), bool) {
	v, _ := s.locks.LoadOrStore(feedName, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

// Sync fetches the feed, maps every record and reconciles the result with
// stored listings. Cancelling ctx stops the run only before the first
// write; once persisting starts the run completes.
func (s *Syncer) Sync(ctx context.Context, feedName string) (result SyncResult) {
	start := time.Now()
	result = SyncResult{Feed: feedName, Status: StatusOK}
	defer func() { result.Duration = time.Since(start) }()

	unlock, ok := s.lock(feedName)
	if !ok {
		result.fail(ErrSyncInProgress)
		return result
	}
	defer unlock()

	f, err := s.feedRepo.GetFeed(feedName)
	if err != nil {
		result.fail(fmt.Errorf("failed to load feed: %w", err))
		return result
	}
	if f == nil {
		result.fail(ErrFeedNotFound)
		return result
	}

	if !f.IsActive {
		slog.Debug("Feed inactive, skipping", "feed", feedName)
		result.Status = StatusInactive
		result.Reason = "feed is inactive"
		return result
	}

	data, err := s.fetcher.Fetch(ctx, f.URL, time.Duration(f.Timeout)*time.Second)
	if err != nil {
		result.fail(fmt.Errorf("failed to fetch feed: %w", err))
		return result
	}
	result.DocumentType = DetectDocumentType(data)

	doc, err := tree.Load(data)
	if err != nil {
		result.fail(fmt.Errorf("failed to parse feed: %w", err))
		s.touch(f)
		return result
	}

	items, reason := s.mapDocument(f, doc)
	result.Total = len(items)
	result.Reason = reason
	if len(items) == 0 {
		slog.Warn("No listings extracted", "feed", feedName, "reason", reason, "document_type", result.DocumentType)
	}

	if err := ctx.Err(); err != nil {
		result.fail(fmt.Errorf("sync cancelled before persisting: %w", err))
		return result
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ExternalID]; dup {
			slog.Warn("Duplicate external id in feed, skipping", "feed", feedName, "external_id", item.ExternalID)
			result.Skipped++
			continue
		}
		seen[item.ExternalID] = struct{}{}

		out, err := s.reconcile(f.ID, item)
		if err != nil {
			slog.Error("Failed to persist listing", "feed", feedName, "external_id", item.ExternalID, "error", err)
			result.Failed++
			continue
		}
		result.count(out)
	}

	s.touch(f)

	return result
}

// Remap re-runs the field mapper over the stored source records of a feed
// and updates listings whose content changed. Nothing is fetched.
func (s *Syncer) Remap(feedName string) (result SyncResult) {
	start := time.Now()
	result = SyncResult{Feed: feedName, Status: StatusOK}
	defer func() { result.Duration = time.Since(start) }()

	unlock, ok := s.lock(feedName)
	if !ok {
		result.fail(ErrSyncInProgress)
		return result
	}
	defer unlock()

	f, err := s.feedRepo.GetFeed(feedName)
	if err != nil {
		result.fail(fmt.Errorf("failed to load feed: %w", err))
		return result
	}
	if f == nil {
		result.fail(ErrFeedNotFound)
		return result
	}

	listings, err := s.listingRepo.GetListings(f.ID, 0)
	if err != nil {
		result.fail(fmt.Errorf("failed to load listings: %w", err))
		return result
	}
	result.Total = len(listings)

	for _, listing := range listings {
		node, err := tree.DecodeJSON(listing.Attributes)
		record, isMap := node.(*tree.Map)
		if err != nil || !isMap {
			slog.Error("Stored attributes are not a record", "feed", feedName, "external_id", listing.ExternalID, "error", err)
			result.Failed++
			continue
		}

		item, err := s.mapItem(record, f)
		if err != nil {
			slog.Error("Failed to map stored listing", "feed", feedName, "external_id", listing.ExternalID, "error", err)
			result.Failed++
			continue
		}

		if item.ContentHash == listing.ContentHash {
			result.Skipped++
			continue
		}

		data, err := listingData(item)
		if err == nil {
			err = s.listingRepo.UpdateListing(listing.ID, data)
		}
		if err != nil {
			slog.Error("Failed to update listing", "feed", feedName, "external_id", item.ExternalID, "error", err)
			result.Failed++
			continue
		}
		result.Updated++
	}

	return result
}

func (s *Syncer) mapDocument(f *database.Feed, doc *tree.Map) ([]Item, string) {
	rootPath := ""
	if f.Mapping != nil {
		rootPath = f.Mapping.RootPath
	}

	ext := s.extractor.Run(doc, rootPath)
	slog.Debug("Records extracted", "feed", f.Name, "root_path", ext.RootPath, "heuristic", ext.Heuristic, "records", len(ext.Records))

	items := make([]Item, 0, len(ext.Records))
	for _, record := range ext.Records {
		item, err := s.mapItem(record, f)
		if err != nil {
			slog.Error("Failed to map record", "feed", f.Name, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, ext.Reason
}

func (s *Syncer) mapItem(record *tree.Map, f *database.Feed) (Item, error) {
	item := s.mapper.Run(record, f.Mapping, f.DefaultCurrency)
	hash, err := ContentHash(item)
	if err != nil {
		return Item{}, err
	}
	item.ContentHash = hash
	return item, nil
}

func (s *Syncer) reconcile(feedID string, item Item) (outcome, error) {
	existing, err := s.listingRepo.FindListing(feedID, item.ExternalID)
	if err != nil {
		return 0, err
	}

	data, err := listingData(item)
	if err != nil {
		return 0, err
	}

	if existing == nil {
		data.ID = uuid.NewString()
		data.Slug = Slug(item.Title, item.ExternalID, data.ID)
		if err := s.listingRepo.CreateListing(feedID, data); err != nil {
			return 0, err
		}
		return outcomeCreated, nil
	}

	if existing.ContentHash == item.ContentHash {
		return outcomeSkipped, nil
	}

	if err := s.listingRepo.UpdateListing(existing.ID, data); err != nil {
		return 0, err
	}
	return outcomeUpdated, nil
}

// touch records the sync time. Failures are logged; the run result stands.
func (s *Syncer) touch(f *database.Feed) {
	if err := s.feedRepo.UpdateLastSync(f.ID, time.Now().UTC()); err != nil {
		slog.Error("Failed to update last sync time", "feed", f.Name, "error", err)
	}
}

func (r *SyncResult) count(out outcome) {
	switch out {
	case outcomeCreated:
		r.Created++
	case outcomeUpdated:
		r.Updated++
	case outcomeSkipped:
		r.Skipped++
	}
}

func listingData(item Item) (database.ListingData, error) {
	attributes, err := json.Marshal(item.Attributes)
	if err != nil {
		return database.ListingData{}, fmt.Errorf("failed to encode attributes: %w", err)
	}

	return database.ListingData{
		ExternalID:   item.ExternalID,
		Title:        item.Title,
		Description:  item.Description,
		Price:        item.Price,
		Currency:     item.Currency,
		City:         item.Location.City,
		Country:      item.Location.Country,
		AddressLine1: item.Location.AddressLine1,
		Bedrooms:     item.Bedrooms,
		Bathrooms:    item.Bathrooms,
		AreaSqm:      item.AreaSqm,
		Images:       item.Images,
		Attributes:   attributes,
		ContentHash:  item.ContentHash,
	}, nil
}
