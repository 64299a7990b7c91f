// Package mapping resolves feed mapping configurations against the paths
// actually present in a document.
package mapping

import "maps"

type FieldName string

const (
	FieldExternalID   FieldName = "externalId"
	FieldTitle        FieldName = "title"
	FieldDescription  FieldName = "description"
	FieldPrice        FieldName = "price"
	FieldCurrency     FieldName = "currency"
	FieldImages       FieldName = "images"
	FieldCity         FieldName = "city"
	FieldCountry      FieldName = "country"
	FieldAddressLine1 FieldName = "addressLine1"
	FieldBedrooms     FieldName = "bedrooms"
	FieldBathrooms    FieldName = "bathrooms"
	FieldAreaSqm      FieldName = "areaSqm"
)

// Fields lists every mappable field in presentation order.
var Fields = []FieldName{
	FieldExternalID,
	FieldTitle,
	FieldDescription,
	FieldPrice,
	FieldCurrency,
	FieldImages,
	FieldCity,
	FieldCountry,
	FieldAddressLine1,
	FieldBedrooms,
	FieldBathrooms,
	FieldAreaSqm,
}

// RepeatedNames are element names that usually mark one listing.
var RepeatedNames = []string{"item", "entry", "property", "listing", "ad"}

func IsField(name FieldName) bool {
	for _, f := range Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Config points at the repeating listing node and at each field inside it.
// Paths are dot-delimited and may be absolute ("rss.channel.item.price")
// or relative to the item ("price").
type Config struct {
	RootPath string               `json:"rootPath,omitempty" yaml:"root_path"`
	Fields   map[FieldName]string `json:"fields" yaml:"fields"`
}

// Path returns the configured path for f, or "".
func (c *Config) Path(f FieldName) string {
	if c == nil {
		return ""
	}
	return c.Fields[f]
}

func (c Config) Clone() Config {
	out := Config{RootPath: c.RootPath, Fields: make(map[FieldName]string, len(c.Fields))}
	maps.Copy(out.Fields, c.Fields)
	return out
}

// IsEmpty reports whether the config names no root and no field paths.
func (c *Config) IsEmpty() bool {
	if c == nil {
		return true
	}
	if c.RootPath != "" {
		return false
	}
	for _, p := range c.Fields {
		if p != "" {
			return false
		}
	}
	return true
}
