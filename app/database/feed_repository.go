package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/listing-comb/app/mapping"
)

var _ FeedRepository = (*FeedStore)(nil)

// FeedStore handles database operations for feeds
type FeedStore struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedStore {
	return &FeedStore{db: db}
}

const feedColumns = `id, name, url, format, mapping_config, is_active, refresh_interval, timeout,
	default_currency, last_sync_at, created_at, updated_at`

// UpsertFeed inserts or updates a feed definition and returns its id. The
// stored mapping is replaced only when the definition carries one.
func (r *FeedStore) UpsertFeed(def FeedDefinition) (string, error) {
	existing, err := r.GetFeed(def.Name)
	if err != nil {
		return "", fmt.Errorf("failed to check existing feed: %w", err)
	}

	var mappingJSON []byte
	if def.Mapping != nil {
		mappingJSON, err = json.Marshal(def.Mapping)
		if err != nil {
			return "", fmt.Errorf("failed to encode mapping: %w", err)
		}
	}

	now := time.Now().UTC()

	if existing != nil {
		_, err = r.db.Exec(`
			UPDATE feeds
			SET url = ?, format = ?, mapping_config = COALESCE(?, mapping_config), is_active = ?,
			    refresh_interval = ?, timeout = ?, default_currency = ?, updated_at = ?
			WHERE id = ?
		`, def.URL, def.Format, nullableText(mappingJSON), def.IsActive,
			def.RefreshInterval, def.Timeout, def.DefaultCurrency, now, existing.ID)
		if err != nil {
			return "", fmt.Errorf("failed to update feed: %w", err)
		}
		return existing.ID, nil
	}

	id := uuid.NewString()
	_, err = r.db.Exec(`
		INSERT INTO feeds (id, name, url, format, mapping_config, is_active, refresh_interval, timeout,
		                   default_currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, def.Name, def.URL, def.Format, nullableText(mappingJSON), def.IsActive,
		def.RefreshInterval, def.Timeout, def.DefaultCurrency, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert feed: %w", err)
	}

	return id, nil
}

// GetFeed retrieves a feed by name. A missing feed is (nil, nil).
func (r *FeedStore) GetFeed(feedName string) (*Feed, error) {
	row := r.db.QueryRow(`SELECT `+feedColumns+` FROM feeds WHERE name = ?`, feedName)

	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

func (r *FeedStore) GetFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`SELECT ` + feedColumns + ` FROM feeds ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *FeedStore) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

// UpdateMapping replaces the stored mapping. A nil config clears it.
func (r *FeedStore) UpdateMapping(feedName string, cfg *mapping.Config) error {
	var mappingJSON []byte
	if cfg != nil {
		var err error
		mappingJSON, err = json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode mapping: %w", err)
		}
	}

	res, err := r.db.Exec(`UPDATE feeds SET mapping_config = ?, updated_at = ? WHERE name = ?`,
		nullableText(mappingJSON), time.Now().UTC(), feedName)
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	return expectRow(res)
}

func (r *FeedStore) SetFeedActive(feedName string, active bool) error {
	res, err := r.db.Exec(`UPDATE feeds SET is_active = ?, updated_at = ? WHERE name = ?`,
		active, time.Now().UTC(), feedName)
	if err != nil {
		return fmt.Errorf("failed to set feed active status: %w", err)
	}
	return expectRow(res)
}

func (r *FeedStore) UpdateLastSync(feedID string, syncedAt time.Time) error {
	_, err := r.db.Exec(`UPDATE feeds SET last_sync_at = ?, updated_at = ? WHERE id = ?`,
		syncedAt.UTC(), time.Now().UTC(), feedID)
	if err != nil {
		return fmt.Errorf("failed to update last sync time: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var feed Feed
	var mappingJSON sql.NullString
	var lastSync sql.NullTime

	err := row.Scan(
		&feed.ID, &feed.Name, &feed.URL, &feed.Format, &mappingJSON, &feed.IsActive,
		&feed.RefreshInterval, &feed.Timeout, &feed.DefaultCurrency, &lastSync,
		&feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mappingJSON.Valid && mappingJSON.String != "" {
		var cfg mapping.Config
		if err := json.Unmarshal([]byte(mappingJSON.String), &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode mapping for feed %s: %w", feed.Name, err)
		}
		feed.Mapping = &cfg
	}
	if lastSync.Valid {
		t := lastSync.Time
		feed.LastSyncAt = &t
	}

	return &feed, nil
}

func nullableText(data []byte) any {
	if data == nil {
		return nil
	}
	return string(data)
}

// ErrNotFound is returned by updates that matched no row.
var ErrNotFound = errors.New("record not found")

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
