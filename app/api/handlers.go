package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lysyi3m/listing-comb/app/database"
	"github.com/lysyi3m/listing-comb/app/feed"
	"github.com/lysyi3m/listing-comb/app/mapping"
	"github.com/lysyi3m/listing-comb/app/tasks"
	"github.com/lysyi3m/listing-comb/app/tree"
)

const (
	defaultListingLimit     = 50
	defaultDiscoveryEntries = 128
)

func NewHandler(configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	listingRepo database.ListingRepository, syncer tasks.ListingSyncer, fetcher feed.DocumentFetcher,
	scheduler tasks.TaskSchedulerInterface, discoveryCacheSize int) (*Handler, error) {
	if discoveryCacheSize < 1 {
		discoveryCacheSize = defaultDiscoveryEntries
	}
	cache, err := lru.New[string, []string](discoveryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery cache: %w", err)
	}

	return &Handler{
		configCache:    configCache,
		feedRepo:       feedRepo,
		listingRepo:    listingRepo,
		syncer:         syncer,
		fetcher:        fetcher,
		scheduler:      scheduler,
		discoveryCache: cache,
		sampleSize:     feed.DefaultSampleSize,
	}, nil
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	stored, err := h.feedRepo.GetFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "get_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	feeds := make([]map[string]interface{}, 0, len(stored))
	for i := range stored {
		info := feedInfo(&stored[i])
		info["mapped"] = !stored[i].Mapping.IsEmpty()
		if count, err := h.listingRepo.GetListingCount(stored[i].ID); err == nil {
			info["listing_count"] = count
		}
		feeds = append(feeds, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	f, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	details := feedInfo(f)
	details["mapping"] = f.Mapping
	if count, err := h.listingRepo.GetListingCount(f.ID); err == nil {
		details["listing_count"] = count
	}
	if _, err := h.configCache.GetConfig(f.Name); err == nil {
		details["config_file"] = f.Name + ".yml"
	}

	c.JSON(http.StatusOK, details)
}

// APISyncFeed runs a sync inline and returns its result.
func (h *Handler) APISyncFeed(c *gin.Context) {
	name := c.Param("name")

	result := h.syncer.Sync(c.Request.Context(), name)

	var fetchErr *feed.FetchError
	switch {
	case errors.Is(result.Err, feed.ErrFeedNotFound):
		c.JSON(http.StatusNotFound, result)
	case errors.Is(result.Err, feed.ErrSyncInProgress):
		c.JSON(http.StatusConflict, result)
	case errors.As(result.Err, &fetchErr):
		slog.Error("Feed sync failed", "feed", name, "error", result.Err)
		c.JSON(http.StatusBadGateway, result)
	case result.Status == feed.StatusError:
		slog.Error("Feed sync failed", "feed", name, "error", result.Err)
		c.JSON(http.StatusInternalServerError, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

// APIUpdateMapping stores a new mapping for the feed and queues a remap of
// its stored listings.
func (h *Handler) APIUpdateMapping(c *gin.Context) {
	var cfg mapping.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mapping", "details": err.Error()})
		return
	}
	for field := range cfg.Fields {
		if !mapping.IsField(field) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mapping", "details": fmt.Sprintf("unknown field: %s", field)})
			return
		}
	}

	f, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	if err := h.feedRepo.UpdateMapping(f.Name, &cfg); err != nil {
		slog.Error("Database error", "operation", "update_mapping", "feed", f.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := gin.H{
		"success": true,
		"feed":    f.Name,
		"mapping": cfg,
	}

	remapTask := tasks.NewRemapListingsTask(f.Name, h.syncer)
	if err := h.scheduler.EnqueueTask(remapTask); err != nil {
		slog.Error("Error enqueueing remap task", "feed", f.Name, "error", err)
		response["message"] = "Mapping stored; remap could not be queued"
	} else {
		response["task"] = gin.H{"id": remapTask.ID, "type": remapTask.Type}
	}

	c.JSON(http.StatusOK, response)
}

// APISetFeedActive pauses or resumes scheduled syncs for the feed until
// its definition is registered again.
func (h *Handler) APISetFeedActive(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": "enabled is required"})
		return
	}

	f, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	if err := h.feedRepo.SetFeedActive(f.Name, *req.Enabled); err != nil {
		slog.Error("Database error", "operation", "set_feed_active", "feed", f.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Feed activity changed", "feed", f.Name, "enabled", *req.Enabled)
	c.JSON(http.StatusOK, gin.H{"success": true, "feed": f.Name, "enabled": *req.Enabled})
}

// APIReloadFeed re-reads the feed's YAML definition and registers it again.
func (h *Handler) APIReloadFeed(c *gin.Context) {
	name := c.Param("name")

	feedConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "feed", name, "error", err)
		status := http.StatusBadRequest
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncFeedConfigTask(feedConfig, h.feedRepo, h.syncer, h.scheduler.EnqueueTask)
	if err := h.scheduler.EnqueueTask(syncTask); err != nil {
		slog.Error("Error enqueueing sync task", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and task enqueued successfully",
		"feed": gin.H{
			"name":    name,
			"url":     feedConfig.URL,
			"enabled": feedConfig.Settings.Enabled,
		},
		"task": gin.H{"id": syncTask.ID, "type": syncTask.Type},
	})
}

// APIDiscoverFeed fetches the feed document and lists the paths in its
// leading sample.
func (h *Handler) APIDiscoverFeed(c *gin.Context) {
	f, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	data, err := h.fetcher.Fetch(c.Request.Context(), f.URL, time.Duration(f.Timeout)*time.Second)
	if err != nil {
		slog.Error("Failed to fetch feed for discovery", "feed", f.Name, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch feed", "details": err.Error()})
		return
	}

	rootPath := c.Query("root_path")
	if rootPath == "" && f.Mapping != nil {
		rootPath = f.Mapping.RootPath
	}

	resp, err := h.discover(data, rootPath)
	if err != nil {
		writeDiscoveryError(c, err)
		return
	}
	resp.Feed = f.Name
	resp.DocumentType = feed.DetectDocumentType(data)

	c.JSON(http.StatusOK, resp)
}

// APIDiscover lists the paths of a document sample posted as the body.
func (h *Handler) APIDiscover(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(h.sampleSize)+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body", "details": err.Error()})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty sample"})
		return
	}

	resp, err := h.discover(raw, c.Query("root_path"))
	if err != nil {
		writeDiscoveryError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) APIRefineMapping(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if len(req.Paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": "paths are required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mapping": mapping.Refine(req.Mapping, req.Paths)})
}

func (h *Handler) APIGetListings(c *gin.Context) {
	limit := defaultListingLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	f, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	listings, err := h.listingRepo.GetListings(f.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_listings", "feed", f.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]listingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, newListingView(l))
	}

	c.JSON(http.StatusOK, gin.H{
		"feed":     f.Name,
		"listings": views,
		"total":    len(views),
	})
}

func (h *Handler) lookupFeed(c *gin.Context) (*database.Feed, bool) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return nil, false
	}

	f, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return nil, false
	}
	return f, true
}

// discover returns the paths of a sample, reusing earlier results for an
// identical sample. Filtering depends on the request and is never cached.
func (h *Handler) discover(raw []byte, rootPath string) (discoveryResponse, error) {
	sample := feed.TrimSample(raw, h.sampleSize)
	sum := sha256.Sum256(sample)
	key := hex.EncodeToString(sum[:])

	resp := discoveryResponse{Truncated: len(sample) < len(raw)}

	paths, cached := h.discoveryCache.Get(key)
	if !cached {
		var err error
		paths, err = feed.DiscoverSample(sample, h.sampleSize)
		if err != nil {
			return resp, err
		}
		h.discoveryCache.Add(key, paths)
	}

	resp.Paths = paths
	resp.Filtered = mapping.FilterPaths(paths, rootPath)
	resp.Cached = cached
	if resp.Filtered == nil {
		resp.Filtered = []string{}
	}
	return resp, nil
}

func writeDiscoveryError(c *gin.Context, err error) {
	var parseErr *tree.ParseError
	if errors.As(err, &parseErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Sample is not well-formed XML", "details": err.Error()})
		return
	}
	slog.Error("Discovery failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Discovery failed", "details": err.Error()})
}
