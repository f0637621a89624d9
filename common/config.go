// Package common holds process-wide configuration and small shared
// helpers.
package common

import (
	"time"

	"github.com/spf13/viper"
)

// APIKey is a typed credential state. The zero value means "absent",
// which is distinct from a key that happens to be empty in the
// environment: loading normalizes both to the unset state.
type APIKey struct {
	value string
}

// NewAPIKey wraps a raw key string. Blank input yields the unset state.
func NewAPIKey(raw string) APIKey {
	return APIKey{value: raw}
}

// Set reports whether a credential is configured.
func (k APIKey) Set() bool { return k.value != "" }

// Value returns the raw key. Only meaningful when Set.
func (k APIKey) Value() string { return k.value }

// Config carries every tunable of the engine. Values come from the
// environment with documented defaults.
type Config struct {
	DBPath        string
	YouTubeAPIKey APIKey

	// HitMultiplier scales raw hit counts into weighted counts.
	HitMultiplier int64

	YtDlpPath         string
	APIPageSize       int64         // max results per channel search call
	ScrapePlaylistEnd int           // --playlist-end bound for yt-dlp
	ScrapeTimeout     time.Duration // per yt-dlp invocation
	HTTPTimeout       time.Duration // per page/API HTTP call
	PageConcurrency   int           // parallel watch-page fetches

	TrendingWindowDays int
	TrendingLimit      int
	PageSize           int
}

// Load resolves configuration from the environment.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DB_PATH", "video-ingest.db")
	v.SetDefault("HIT_MULTIPLIER", 3)
	v.SetDefault("YTDLP_PATH", "yt-dlp")
	v.SetDefault("API_PAGE_SIZE", 20)
	v.SetDefault("SCRAPE_PLAYLIST_END", 10)
	v.SetDefault("SCRAPE_TIMEOUT_SECONDS", 120)
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("PAGE_FETCH_CONCURRENCY", 4)
	v.SetDefault("TRENDING_WINDOW_DAYS", 3)
	v.SetDefault("TRENDING_LIMIT", 10)
	v.SetDefault("PAGE_SIZE", 10)

	return Config{
		DBPath:             v.GetString("DB_PATH"),
		YouTubeAPIKey:      NewAPIKey(v.GetString("YOUTUBE_API_KEY")),
		HitMultiplier:      v.GetInt64("HIT_MULTIPLIER"),
		YtDlpPath:          v.GetString("YTDLP_PATH"),
		APIPageSize:        v.GetInt64("API_PAGE_SIZE"),
		ScrapePlaylistEnd:  v.GetInt("SCRAPE_PLAYLIST_END"),
		ScrapeTimeout:      time.Duration(v.GetInt("SCRAPE_TIMEOUT_SECONDS")) * time.Second,
		HTTPTimeout:        time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		PageConcurrency:    v.GetInt("PAGE_FETCH_CONCURRENCY"),
		TrendingWindowDays: v.GetInt("TRENDING_WINDOW_DAYS"),
		TrendingLimit:      v.GetInt("TRENDING_LIMIT"),
		PageSize:           v.GetInt("PAGE_SIZE"),
	}
}
