// Package store provides durable storage for video records, the channel
// directory and hit counters.
package store

import (
	"context"
	"time"

	"github.com/mediapulse-hub/video-ingest/model"
)

// VideoQuery describes a filtered, sorted, paginated read over non-deleted
// video records. Filter and sort fields are validated against a column
// whitelist; unknown fields are ignored.
type VideoQuery struct {
	ChannelID      *string
	IsShort        *bool
	TitleContains  string            // substring match on title
	Filters        map[string]string // exact match on whitelisted columns
	ExcludeVideoID string
	SortField      string // default upload_date
	SortDesc       bool
	Limit          int
	Offset         int
}

// VideoStore is the record store consumed by providers and the read side.
// Tombstoned (soft-deleted) records are excluded from every read except
// TombstonedVideoIDs.
type VideoStore interface {
	// FindByVideoID returns a non-deleted record or model.ErrNotFound.
	FindByVideoID(ctx context.Context, videoID string) (*model.VideoRecord, error)

	// ExistingVideoIDs returns the active video ids stored for the given
	// channels.
	ExistingVideoIDs(ctx context.Context, channelIDs []string) (map[string]struct{}, error)

	// TombstonedVideoIDs returns the soft-deleted video ids stored for the
	// given channels.
	TombstonedVideoIDs(ctx context.Context, channelIDs []string) (map[string]struct{}, error)

	InsertVideo(ctx context.Context, rec *model.VideoRecord) error
	UpdateVideo(ctx context.Context, rec *model.VideoRecord) error

	// UpsertVideo inserts or replaces a record keyed on its video id
	// alone. A tombstoned record is revived: this is the explicit re-add
	// path used by single-URL resolution.
	UpsertVideo(ctx context.Context, rec *model.VideoRecord) error

	// SoftDeleteVideo tombstones a record. model.ErrNotFound when absent
	// or already deleted.
	SoftDeleteVideo(ctx context.Context, videoID string) error

	QueryVideos(ctx context.Context, q VideoQuery) ([]model.VideoRecord, error)

	ChannelByUsername(ctx context.Context, username string) (*model.Channel, error)
	ChannelByExternalID(ctx context.Context, channelID string) (*model.Channel, error)

	// ChannelDirectory lists (username, external id) pairs, optionally
	// restricted to visible channels.
	ChannelDirectory(ctx context.Context, visibleOnly bool) ([]model.ChannelRef, error)

	// DirectoryByNames resolves channel display names to directory pairs.
	// Unknown names are dropped.
	DirectoryByNames(ctx context.Context, names []string) ([]model.ChannelRef, error)

	UpsertChannel(ctx context.Context, ch *model.Channel) error

	// IncrementHit adds one raw hit to the video's counter row, creating
	// it when absent, and recomputes the weighted count from the raw
	// count and multiplier.
	IncrementHit(ctx context.Context, videoID string, multiplier int64) (*model.HitCount, error)

	// Trending returns non-short videos whose hit counter was touched
	// within the trailing window, ordered by view count descending.
	Trending(ctx context.Context, window time.Duration, limit int) ([]model.VideoRecord, error)

	Close() error
}
