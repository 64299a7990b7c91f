package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/listing-comb/app/mapping"
)

func TestConfigCacheLoadValidConfig(t *testing.T) {
	// Create temp directory
	tempDir := t.TempDir()

	content := `
url: "https://example.com/export.xml"
format: generic

settings:
  enabled: true
  refresh_interval: 1800
  timeout: 15
  default_currency: GBP

mapping:
  root_path: listings.listing
  fields:
    externalId: id
    title: title
    images: images.image
`

	err := os.WriteFile(filepath.Join(tempDir, "test.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 feedConfig, got %d", configCache.GetConfigCount())
	}

	feedConfig, err := configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	if feedConfig.Name != "test" {
		t.Errorf("Expected name 'test', got '%s'", feedConfig.Name)
	}
	if feedConfig.URL != "https://example.com/export.xml" {
		t.Errorf("Expected URL 'https://example.com/export.xml', got '%s'", feedConfig.URL)
	}
	if time.Duration(feedConfig.Settings.RefreshInterval)*time.Second != 1800*time.Second {
		t.Errorf("Expected refresh interval 1800s, got %v", time.Duration(feedConfig.Settings.RefreshInterval)*time.Second)
	}
	if feedConfig.Settings.DefaultCurrency != "GBP" {
		t.Errorf("Expected currency 'GBP', got '%s'", feedConfig.Settings.DefaultCurrency)
	}
	if feedConfig.Mapping == nil {
		t.Fatal("Expected mapping to be loaded")
	}
	if feedConfig.Mapping.RootPath != "listings.listing" {
		t.Errorf("Expected root path 'listings.listing', got '%s'", feedConfig.Mapping.RootPath)
	}
	if feedConfig.Mapping.Path(mapping.FieldImages) != "images.image" {
		t.Errorf("Expected images path 'images.image', got '%s'", feedConfig.Mapping.Path(mapping.FieldImages))
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	content := `
url: "https://example.com/export.xml"

settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "test.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	feedConfig, err := configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	// Validate default values
	if feedConfig.Settings.RefreshInterval != 3600 {
		t.Errorf("Expected default refresh interval 3600, got %d", feedConfig.Settings.RefreshInterval)
	}
	if feedConfig.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", feedConfig.Settings.Timeout)
	}
	if feedConfig.Settings.DefaultCurrency != DefaultCurrency {
		t.Errorf("Expected default currency '%s', got '%s'", DefaultCurrency, feedConfig.Settings.DefaultCurrency)
	}
	if feedConfig.Format != FormatGeneric {
		t.Errorf("Expected default format '%s', got '%s'", FormatGeneric, feedConfig.Format)
	}
	if feedConfig.Mapping != nil {
		t.Errorf("Expected no mapping, got %+v", feedConfig.Mapping)
	}
}

func TestConfigCacheInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"missing url", "settings:\n  enabled: true\n", "feed URL is required"},
		{"negative timeout", "url: http://x\nsettings:\n  timeout: -1\n", "timeout must be non-negative"},
		{"unknown field", "url: http://x\nmapping:\n  fields:\n    colour: paint\n", "invalid mapping field: colour"},
		{"bad yaml", "url: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			err := os.WriteFile(filepath.Join(tempDir, "test.yml"), []byte(tt.content), 0644)
			if err != nil {
				t.Fatal(err)
			}

			err = NewConfigCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected error for invalid config")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing '%s', got: %v", tt.errPart, err)
			}
		})
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "absent"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got: %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", configCache.GetConfigCount())
	}
	if _, err := configCache.GetConfig("nope"); err == nil {
		t.Error("Expected error for unknown config")
	}
}
