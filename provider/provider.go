// Package provider implements the metadata sources the engine ingests
// from: the YouTube Data API and a yt-dlp scraping fallback. Both
// normalize upstream data into model.VideoRecord and reconcile against
// the record store.
package provider

import (
	"context"

	"github.com/mediapulse-hub/video-ingest/model"
)

// FetchResult is the outcome of one batch fetch. Stored holds the
// records written to storage; FailedChannelIDs names the channels the
// provider could not satisfy, for fallback escalation.
type FetchResult struct {
	Stored           []model.VideoRecord
	FailedChannelIDs []string
}

// MetadataProvider is the capability shared by the API and scrape
// implementations. Usernames and channelIDs are aligned pairwise.
type MetadataProvider interface {
	FetchVideosData(ctx context.Context, usernames, channelIDs []string) (FetchResult, error)
	ResolveSingleVideo(ctx context.Context, rawURL, videoID string) (*model.VideoRecord, error)
}
