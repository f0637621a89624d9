package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediapulse-hub/video-ingest/common"
	"github.com/mediapulse-hub/video-ingest/model"
	"github.com/mediapulse-hub/video-ingest/store"
)

// ListOptions is the caller-facing shape of a listing query. A nil
// options value selects the default view: non-short videos, newest
// upload first, one page.
type ListOptions struct {
	Filters   map[string]string // "title" matches substring, others exact
	SortField string
	SortDesc  bool
	Limit     int
	Offset    int
}

// Aggregator builds the read-side views over stored records: listings,
// the suggestion chain, trending, and hit counting. It never calls a
// provider.
type Aggregator struct {
	store store.VideoStore
	cfg   common.Config
	log   zerolog.Logger
}

// NewAggregator wires the read side.
func NewAggregator(st store.VideoStore, cfg common.Config, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		store: st,
		cfg:   cfg,
		log:   logger.With().Str("component", "aggregator").Logger(),
	}
}

func boolPtr(b bool) *bool { return &b }

func (a *Aggregator) defaultQuery() store.VideoQuery {
	return store.VideoQuery{
		IsShort:   boolPtr(false),
		SortField: "upload_date",
		SortDesc:  true,
		Limit:     a.cfg.PageSize,
	}
}

// ListVideos returns the filtered listing. With nil opts the default
// view applies; explicit options control filters and ordering without
// the implicit shorts exclusion.
func (a *Aggregator) ListVideos(ctx context.Context, opts *ListOptions) ([]model.VideoRecord, error) {
	if opts == nil {
		return a.store.QueryVideos(ctx, a.defaultQuery())
	}
	q := store.VideoQuery{
		Filters:   opts.Filters,
		SortField: opts.SortField,
		SortDesc:  opts.SortDesc,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	}
	if q.SortField == "" {
		q.SortField = "upload_date"
		q.SortDesc = true
	}
	if q.Limit <= 0 {
		q.Limit = a.cfg.PageSize
	}
	return a.store.QueryVideos(ctx, q)
}

// ListChannelVideos lists a channel's non-short videos, excluding one
// specific video id ("more from this channel"). A missing channel is an
// error unless called in suggestion mode, where it simply yields no
// results.
func (a *Aggregator) ListChannelVideos(ctx context.Context, channelID, excludeVideoID string, suggest bool) ([]model.VideoRecord, error) {
	if _, err := a.store.ChannelByExternalID(ctx, channelID); err != nil {
		if !suggest {
			return nil, err
		}
		return nil, nil
	}
	q := a.defaultQuery()
	q.ChannelID = &channelID
	q.ExcludeVideoID = excludeVideoID
	return a.store.QueryVideos(ctx, q)
}

// ListShorts returns the default short-form listing.
func (a *Aggregator) ListShorts(ctx context.Context) ([]model.VideoRecord, error) {
	q := a.defaultQuery()
	q.IsShort = boolPtr(true)
	return a.store.QueryVideos(ctx, q)
}

// ListChannelShorts returns a channel's short-form listing.
func (a *Aggregator) ListChannelShorts(ctx context.Context, channelID string) ([]model.VideoRecord, error) {
	if _, err := a.store.ChannelByExternalID(ctx, channelID); err != nil {
		return nil, err
	}
	q := a.defaultQuery()
	q.IsShort = boolPtr(true)
	q.ChannelID = &channelID
	return a.store.QueryVideos(ctx, q)
}

// SuggestNext proposes videos to watch after the given one: the rest of
// its channel first, then the global default listing. The result is
// non-empty whenever any non-deleted video exists in storage.
func (a *Aggregator) SuggestNext(ctx context.Context, videoID string) ([]model.VideoRecord, error) {
	video, err := a.store.FindByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if video.ChannelID != nil {
		suggestions, err := a.ListChannelVideos(ctx, *video.ChannelID, videoID, true)
		if err != nil {
			return nil, err
		}
		if len(suggestions) > 0 {
			return suggestions, nil
		}
	}

	a.log.Debug().Str("video_id", videoID).Msg("No channel suggestions, falling back to global listing")
	return a.store.QueryVideos(ctx, a.defaultQuery())
}

// Trending returns the non-short videos whose hit counter was touched
// within the configured trailing window, ranked by absolute view count
// rather than recent engagement velocity.
func (a *Aggregator) Trending(ctx context.Context) ([]model.VideoRecord, error) {
	window := time.Duration(a.cfg.TrendingWindowDays) * 24 * time.Hour
	return a.store.Trending(ctx, window, a.cfg.TrendingLimit)
}

// RecordHit adds one watch event to the video's counter, recomputing the
// weighted count from the configured multiplier.
func (a *Aggregator) RecordHit(ctx context.Context, videoID string) (*model.HitCount, error) {
	multiplier := a.cfg.HitMultiplier
	if multiplier <= 0 {
		multiplier = 3
	}
	return a.store.IncrementHit(ctx, videoID, multiplier)
}

// DeleteVideo tombstones a record by its external video id.
func (a *Aggregator) DeleteVideo(ctx context.Context, videoID string) error {
	if err := a.store.SoftDeleteVideo(ctx, videoID); err != nil {
		return err
	}
	a.log.Info().Str("video_id", videoID).Msg("Video soft-deleted")
	return nil
}

// VideoDetail returns one record with its channel fields joined in.
func (a *Aggregator) VideoDetail(ctx context.Context, videoID string) (*model.VideoRecord, error) {
	return a.store.FindByVideoID(ctx, videoID)
}
