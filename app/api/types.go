package api

import (
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lysyi3m/listing-comb/app/database"
	"github.com/lysyi3m/listing-comb/app/feed"
	"github.com/lysyi3m/listing-comb/app/mapping"
	"github.com/lysyi3m/listing-comb/app/tasks"
)

type Handler struct {
	configCache    *feed.ConfigCache
	feedRepo       database.FeedRepository
	listingRepo    database.ListingRepository
	syncer         tasks.ListingSyncer
	fetcher        feed.DocumentFetcher
	scheduler      tasks.TaskSchedulerInterface
	discoveryCache *lru.Cache[string, []string] // sha256 of sample -> discovered paths
	sampleSize     int
}

type refineRequest struct {
	Mapping mapping.Config `json:"mapping"`
	Paths   []string       `json:"paths"`
}

type discoveryResponse struct {
	Feed         string   `json:"feed,omitempty"`
	DocumentType string   `json:"document_type,omitempty"`
	Paths        []string `json:"paths"`
	Filtered     []string `json:"filtered"`
	Truncated    bool     `json:"truncated"`
	Cached       bool     `json:"cached"`
}

type listingView struct {
	ID          string          `json:"id"`
	ExternalID  string          `json:"externalId"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Price       float64         `json:"price"`
	Currency    string          `json:"currency"`
	Images      []string        `json:"images"`
	Location    feed.Location   `json:"location"`
	Bedrooms    *int            `json:"bedrooms,omitempty"`
	Bathrooms   *int            `json:"bathrooms,omitempty"`
	AreaSqm     *float64        `json:"areaSqm,omitempty"`
	Attributes  json.RawMessage `json:"attributes,omitempty"`
	ContentHash string          `json:"contentHash"`
	Status      string          `json:"status"`
	Publication string          `json:"publicationStatus"`
	Source      string          `json:"source"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func newListingView(l database.Listing) listingView {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	var attributes json.RawMessage
	if len(l.Attributes) > 0 {
		attributes = json.RawMessage(l.Attributes)
	}

	return listingView{
		ID:          l.ID,
		ExternalID:  l.ExternalID,
		Slug:        l.Slug,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Currency:    l.Currency,
		Images:      images,
		Location: feed.Location{
			City:         l.City,
			Country:      l.Country,
			AddressLine1: l.AddressLine1,
		},
		Bedrooms:    l.Bedrooms,
		Bathrooms:   l.Bathrooms,
		AreaSqm:     l.AreaSqm,
		Attributes:  attributes,
		ContentHash: l.ContentHash,
		Status:      l.Status,
		Publication: l.PublicationStatus,
		Source:      l.Source,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func feedInfo(f *database.Feed) map[string]interface{} {
	return map[string]interface{}{
		"id":               f.ID,
		"name":             f.Name,
		"url":              f.URL,
		"format":           f.Format,
		"enabled":          f.IsActive,
		"refresh_interval": (time.Duration(f.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(f.Timeout) * time.Second).String(),
		"default_currency": f.DefaultCurrency,
		"last_sync_at":     f.LastSyncAt,
		"created_at":       f.CreatedAt,
		"updated_at":       f.UpdatedAt,
	}
}
