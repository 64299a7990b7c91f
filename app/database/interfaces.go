package database

import (
	"time"

	"github.com/lysyi3m/listing-comb/app/mapping"
)

// FeedDefinition is the configured side of a feed row.
type FeedDefinition struct {
	Name            string
	URL             string
	Format          string
	Mapping         *mapping.Config // left untouched when nil
	IsActive        bool
	RefreshInterval int
	Timeout         int
	DefaultCurrency string
}

// ListingData is the mutable projection of a listing written by a sync.
type ListingData struct {
	ID           string // used on create only
	ExternalID   string
	Slug         string // used on create only
	Title        string
	Description  string
	Price        float64
	Currency     string
	City         string
	Country      string
	AddressLine1 string
	Bedrooms     *int
	Bathrooms    *int
	AreaSqm      *float64
	Images       []string
	Attributes   []byte
	ContentHash  string
}

type FeedRepository interface {
	GetFeed(feedName string) (*Feed, error)
	GetFeeds() ([]Feed, error)
	GetFeedCount() (int, error)

	UpsertFeed(def FeedDefinition) (string, error)
	UpdateMapping(feedName string, cfg *mapping.Config) error
	SetFeedActive(feedName string, active bool) error
	UpdateLastSync(feedID string, syncedAt time.Time) error
}

type ListingRepository interface {
	FindListing(feedID, externalID string) (*Listing, error)
	GetListings(feedID string, limit int) ([]Listing, error)
	GetListingCount(feedID string) (int, error)

	CreateListing(feedID string, data ListingData) error
	UpdateListing(listingID string, data ListingData) error
}
