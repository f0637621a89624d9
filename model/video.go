// Package model defines the canonical record types shared by providers,
// storage and the read side.
package model

import (
	"strings"
	"time"
)

// ShortMaxSeconds is the inclusive duration threshold below which a video
// is classified as short-form.
const ShortMaxSeconds = 180

// VideoRecord is the normalized metadata for one external video. ChannelID
// is nullable: the scrape path stores videos whose uploader is not in the
// channel directory with a NULL channel reference.
type VideoRecord struct {
	VideoID     string     `json:"video_id"`
	ChannelID   *string    `json:"channel_id"`
	VideoURL    string     `json:"video_url"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Thumbnail   string     `json:"thumbnail"`
	UploadDate  time.Time  `json:"upload_date"`
	ViewCount   *int64     `json:"view_count"`
	LikeCount   *int64     `json:"like_count"`
	Duration    *int64     `json:"duration"`
	IsShort     bool       `json:"is_short"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Channel display fields joined in by read queries when the owning
	// channel is known.
	ChannelName string `json:"channel_name,omitempty"`
	ChannelLogo string `json:"channel_logo_url,omitempty"`
}

// Channel is one entry of the channel directory.
type Channel struct {
	ChannelID   string `json:"channel_id"`
	Name        string `json:"channel_name"`
	Username    string `json:"username"`
	Description string `json:"description"`
	LogoURL     string `json:"channel_logo_url"`
	Hidden      bool   `json:"hidden"`
}

// ChannelRef is a (username, external id) pair as resolved from the
// directory. Order matters to keep usernames and ids aligned across
// provider calls.
type ChannelRef struct {
	Username  string
	ChannelID string
}

// HitCount is the per-video engagement counter row. Weighted is always
// Raw times Multiplier, recomputed on every increment.
type HitCount struct {
	VideoID    string    `json:"video_id"`
	Raw        int64     `json:"count"`
	Weighted   int64     `json:"multiplied_count"`
	Multiplier int64     `json:"multiplier"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ClassifyShort reports whether a video is short-form. Duration wins when
// known (<= 180s); otherwise the URL shape decides.
func ClassifyShort(durationSeconds *int64, videoURL string) bool {
	if durationSeconds != nil {
		return *durationSeconds <= ShortMaxSeconds
	}
	return strings.Contains(videoURL, "shorts")
}

// WatchURL builds the canonical URL for a video id given its
// classification. Shorts get the /shorts/ path, long-form the watch path.
func WatchURL(videoID string, isShort bool) string {
	if isShort {
		return "https://www.youtube.com/shorts/" + videoID
	}
	return "https://www.youtube.com/watch?v=" + videoID
}
