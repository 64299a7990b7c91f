package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ ListingRepository = (*ListingStore)(nil)

// ListingStore handles database operations for listings and their media
type ListingStore struct {
	db *DB
}

func NewListingRepository(db *DB) *ListingStore {
	return &ListingStore{db: db}
}

const listingColumns = `id, feed_id, feed_reference_id, slug, title, description, price, currency,
	city, country, address_line1, bedrooms, bathrooms, area_sqm, attributes, content_hash,
	status, publication_status, source, created_at, updated_at`

// FindListing looks a listing up by its natural key. A missing listing is
// (nil, nil).
func (r *ListingStore) FindListing(feedID, externalID string) (*Listing, error) {
	row := r.db.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE feed_id = ? AND feed_reference_id = ?`,
		feedID, externalID)

	listing, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}

	listing.Images, err = r.getImages(listing.ID)
	if err != nil {
		return nil, err
	}

	return listing, nil
}

// GetListings returns a feed's listings, newest first. A non-positive
// limit returns all of them.
func (r *ListingStore) GetListings(feedID string, limit int) ([]Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE feed_id = ? ORDER BY created_at DESC, id`
	args := []any{feedID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}

	var listings []Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, *listing)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}
	// The connection must be released before media queries run.
	rows.Close()

	for i := range listings {
		listings[i].Images, err = r.getImages(listings[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return listings, nil
}

func (r *ListingStore) GetListingCount(feedID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM listings WHERE feed_id = ?", feedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get listing count: %w", err)
	}
	return count, nil
}

// CreateListing inserts a listing with its media in one transaction.
func (r *ListingStore) CreateListing(feedID string, data ListingData) error {
	if data.ID == "" {
		data.ID = uuid.NewString()
	}
	if data.Slug == "" {
		data.Slug = data.ID
	}
	now := time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO listings (id, feed_id, feed_reference_id, slug, title, description, price, currency,
		                      city, country, address_line1, bedrooms, bathrooms, area_sqm, attributes,
		                      content_hash, status, publication_status, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, data.ID, feedID, data.ExternalID, data.Slug, data.Title, data.Description, data.Price, data.Currency,
		data.City, data.Country, data.AddressLine1, data.Bedrooms, data.Bathrooms, data.AreaSqm,
		attributesText(data.Attributes), data.ContentHash,
		ListingStatusActive, PublicationStatusPending, ListingSourceFeed, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}

	if err := insertImages(tx, data.ID, data.Images); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit listing: %w", err)
	}
	return nil
}

// UpdateListing rewrites the mutable projection of a listing and replaces
// its media. Slug and lifecycle columns are kept.
func (r *ListingStore) UpdateListing(listingID string, data ListingData) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE listings
		SET feed_reference_id = ?, title = ?, description = ?, price = ?, currency = ?,
		    city = ?, country = ?, address_line1 = ?, bedrooms = ?, bathrooms = ?, area_sqm = ?,
		    attributes = ?, content_hash = ?, updated_at = ?
		WHERE id = ?
	`, data.ExternalID, data.Title, data.Description, data.Price, data.Currency,
		data.City, data.Country, data.AddressLine1, data.Bedrooms, data.Bathrooms, data.AreaSqm,
		attributesText(data.Attributes), data.ContentHash, time.Now().UTC(), listingID)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM listing_media WHERE listing_id = ?`, listingID); err != nil {
		return fmt.Errorf("failed to clear listing media: %w", err)
	}
	if err := insertImages(tx, listingID, data.Images); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit listing: %w", err)
	}
	return nil
}

func (r *ListingStore) getImages(listingID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT url FROM listing_media
		WHERE listing_id = ? AND kind = ?
		ORDER BY sort_order
	`, listingID, MediaKindImage)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing media: %w", err)
	}
	defer rows.Close()

	images := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan listing media: %w", err)
		}
		images = append(images, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing media: %w", err)
	}
	return images, nil
}

func insertImages(tx *sql.Tx, listingID string, images []string) error {
	for i, url := range images {
		_, err := tx.Exec(`INSERT INTO listing_media (listing_id, url, kind, sort_order) VALUES (?, ?, ?, ?)`,
			listingID, url, MediaKindImage, i)
		if err != nil {
			return fmt.Errorf("failed to insert listing media: %w", err)
		}
	}
	return nil
}

func scanListing(row rowScanner) (*Listing, error) {
	var l Listing
	var bedrooms, bathrooms sql.NullInt64
	var area sql.NullFloat64
	var attributes string

	err := row.Scan(
		&l.ID, &l.FeedID, &l.ExternalID, &l.Slug, &l.Title, &l.Description, &l.Price, &l.Currency,
		&l.City, &l.Country, &l.AddressLine1, &bedrooms, &bathrooms, &area, &attributes, &l.ContentHash,
		&l.Status, &l.PublicationStatus, &l.Source, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bedrooms.Valid {
		n := int(bedrooms.Int64)
		l.Bedrooms = &n
	}
	if bathrooms.Valid {
		n := int(bathrooms.Int64)
		l.Bathrooms = &n
	}
	if area.Valid {
		a := area.Float64
		l.AreaSqm = &a
	}
	l.Attributes = []byte(attributes)

	return &l, nil
}

func attributesText(data []byte) string {
	if len(data) == 0 {
		return "{}"
	}
	return string(data)
}
