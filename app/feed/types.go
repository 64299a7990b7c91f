package feed

import (
	"github.com/lysyi3m/listing-comb/app/mapping"
	"github.com/lysyi3m/listing-comb/app/tree"
)

// Listing processing types

type Location struct {
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
}

// Item is one listing normalized from a feed record.
type Item struct {
	ExternalID  string   `json:"externalId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Images      []string `json:"images"`
	Location    Location `json:"location"`
	Bedrooms    *int     `json:"bedrooms,omitempty"`
	Bathrooms   *int     `json:"bathrooms,omitempty"`
	AreaSqm     *float64 `json:"areaSqm,omitempty"`

	Attributes  tree.Node `json:"attributes,omitempty"`
	ContentHash string    `json:"contentHash,omitempty"`
}

// Configuration types

type Config struct {
	Name     string          // Derived from filename (without .yml extension)
	URL      string          `yaml:"url"`
	Format   string          `yaml:"format"`
	Settings ConfigSettings  `yaml:"settings"`
	Mapping  *mapping.Config `yaml:"mapping"`
}

type ConfigSettings struct {
	Enabled         bool   `yaml:"enabled"`
	RefreshInterval int    `yaml:"refresh_interval"` // seconds
	Timeout         int    `yaml:"timeout"`          // seconds
	DefaultCurrency string `yaml:"default_currency"`
}

const (
	FormatGeneric = "generic"

	DefaultCurrency = "EUR"

	// UnknownExternalID marks items whose identifier could not be found.
	UnknownExternalID = "unknown"
)
