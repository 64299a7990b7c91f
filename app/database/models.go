package database

import (
	"time"

	"github.com/lysyi3m/listing-comb/app/mapping"
)

// Listing lifecycle values written on create.
const (
	ListingStatusActive      = "ACTIVE"
	PublicationStatusPending = "PENDING"
	ListingSourceFeed        = "FEED"
	MediaKindImage           = "IMAGE"
)

type Feed struct {
	ID              string // Database UUID
	Name            string // Configuration feed identifier derived from filename
	URL             string
	Format          string
	Mapping         *mapping.Config
	IsActive        bool
	RefreshInterval int // seconds
	Timeout         int // seconds
	DefaultCurrency string
	LastSyncAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsDue reports whether the feed's refresh interval has elapsed since its
// last sync.
func (f *Feed) IsDue(now time.Time) bool {
	if !f.IsActive {
		return false
	}
	if f.LastSyncAt == nil {
		return true
	}
	return !f.LastSyncAt.Add(time.Duration(f.RefreshInterval) * time.Second).After(now)
}

type Listing struct {
	ID                string
	FeedID            string
	ExternalID        string // feed_reference_id
	Slug              string
	Title             string
	Description       string
	Price             float64
	Currency          string
	City              string
	Country           string
	AddressLine1      string
	Bedrooms          *int
	Bathrooms         *int
	AreaSqm           *float64
	Images            []string
	Attributes        []byte // ordered JSON of the source record
	ContentHash       string
	Status            string
	PublicationStatus string
	Source            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
