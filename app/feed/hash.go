package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/lysyi3m/listing-comb/app/tree"
)

// ContentHash fingerprints an item over a sorted-key encoding of its
// fields and raw attributes, so key order in the source never changes it.
func ContentHash(item Item) (string, error) {
	fields := map[string]any{
		"externalId":  item.ExternalID,
		"title":       item.Title,
		"description": item.Description,
		"price":       item.Price,
		"currency":    item.Currency,
		"images":      item.Images,
		"location": map[string]any{
			"city":         item.Location.City,
			"country":      item.Location.Country,
			"addressLine1": item.Location.AddressLine1,
		},
		"bedrooms":   item.Bedrooms,
		"bathrooms":  item.Bathrooms,
		"areaSqm":    item.AreaSqm,
		"attributes": tree.Value(item.Attributes),
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode item: %w", err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
