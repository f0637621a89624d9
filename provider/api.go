package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/mediapulse-hub/video-ingest/common"
	"github.com/mediapulse-hub/video-ingest/model"
	"github.com/mediapulse-hub/video-ingest/store"
)

// APIProvider fetches video metadata through the YouTube Data API. It is
// the primary provider: a missing credential makes every call a clean
// no-op failure so the orchestrator can escalate to the fallback.
type APIProvider struct {
	store       store.VideoStore
	apiKey      common.APIKey
	pageSize    int64
	httpTimeout time.Duration
	log         zerolog.Logger

	svc *ytapi.Service
}

// NewAPIProvider creates the Data API provider. The API service itself
// is created lazily on first use.
func NewAPIProvider(st store.VideoStore, cfg common.Config, logger zerolog.Logger) *APIProvider {
	return &APIProvider{
		store:       st,
		apiKey:      cfg.YouTubeAPIKey,
		pageSize:    cfg.APIPageSize,
		httpTimeout: cfg.HTTPTimeout,
		log:         logger.With().Str("provider", "youtube-api").Logger(),
	}
}

func (p *APIProvider) service(ctx context.Context) (*ytapi.Service, error) {
	if p.svc != nil {
		return p.svc, nil
	}
	httpClient := &http.Client{Timeout: p.httpTimeout}
	svc, err := ytapi.NewService(ctx, option.WithAPIKey(p.apiKey.Value()), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	p.svc = svc
	return svc, nil
}

// FetchVideosData pulls the most recent videos for each channel id: one
// newest-first search per channel, then a single batched details call
// for statistics and duration. Channels whose search fails or comes back
// empty are reported in FailedChannelIDs.
func (p *APIProvider) FetchVideosData(ctx context.Context, usernames, channelIDs []string) (FetchResult, error) {
	if !p.apiKey.Set() {
		p.log.Error().Msg("YouTube API key is missing")
		return FetchResult{}, nil
	}
	svc, err := p.service(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to connect to YouTube API")
		return FetchResult{}, nil
	}

	existing, err := p.store.ExistingVideoIDs(ctx, channelIDs)
	if err != nil {
		return FetchResult{}, err
	}
	tombstoned, err := p.store.TombstonedVideoIDs(ctx, channelIDs)
	if err != nil {
		return FetchResult{}, err
	}

	rec := reconciler{store: p.store, log: p.log}
	var result FetchResult

	for _, channelID := range channelIDs {
		search, err := svc.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			Type("video").
			Order("date").
			MaxResults(p.pageSize).
			Context(ctx).Do()
		if err != nil {
			p.log.Warn().Err(err).Str("channel_id", channelID).Msg("Videos not found for channel")
			result.FailedChannelIDs = append(result.FailedChannelIDs, channelID)
			continue
		}
		if len(search.Items) == 0 {
			p.log.Info().Str("channel_id", channelID).Msg("Empty videos data for channel")
			result.FailedChannelIDs = append(result.FailedChannelIDs, channelID)
			continue
		}

		videoIDs := make([]string, 0, len(search.Items))
		for _, item := range search.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				videoIDs = append(videoIDs, item.Id.VideoId)
			}
		}

		details, err := svc.Videos.List([]string{"statistics", "contentDetails"}).
			Id(videoIDs...).
			Context(ctx).Do()
		if err != nil {
			p.log.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to get video details")
			continue
		}
		detailsByID := make(map[string]*ytapi.Video, len(details.Items))
		for _, item := range details.Items {
			detailsByID[item.Id] = item
		}

		for _, item := range search.Items {
			if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
				continue
			}
			record := p.searchItemToRecord(item, detailsByID[item.Id.VideoId], channelID)
			stored, err := rec.apply(ctx, record, existing, tombstoned)
			if err != nil {
				return result, err
			}
			if stored != nil {
				result.Stored = append(result.Stored, *stored)
			}
		}
	}

	return result, nil
}

func (p *APIProvider) searchItemToRecord(item *ytapi.SearchResult, detail *ytapi.Video, channelID string) *model.VideoRecord {
	var viewCount, likeCount, duration *int64
	if detail != nil {
		if detail.Statistics != nil {
			vc := int64(detail.Statistics.ViewCount)
			lc := int64(detail.Statistics.LikeCount)
			viewCount, likeCount = &vc, &lc
		}
		if detail.ContentDetails != nil && detail.ContentDetails.Duration != "" {
			if secs, err := parseISODuration(detail.ContentDetails.Duration); err == nil {
				duration = &secs
			} else {
				p.log.Warn().Err(err).Str("video_id", item.Id.VideoId).Msg("Unparseable video duration")
			}
		}
	}

	// The canonical URL is synthesized from the classification, so the
	// URL heuristic cannot apply here: unknown duration means long-form.
	isShort := duration != nil && *duration <= model.ShortMaxSeconds

	uploadDate := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		uploadDate = ts.UTC()
	}

	chID := channelID
	return &model.VideoRecord{
		VideoID:     item.Id.VideoId,
		ChannelID:   &chID,
		VideoURL:    model.WatchURL(item.Id.VideoId, isShort),
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Thumbnail:   searchThumbnail(item.Snippet.Thumbnails),
		UploadDate:  uploadDate,
		ViewCount:   viewCount,
		LikeCount:   likeCount,
		Duration:    duration,
		IsShort:     isShort,
	}
}

// searchThumbnail picks a thumbnail in the medium -> default -> high
// preference order.
func searchThumbnail(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	if t.Medium != nil && t.Medium.Url != "" {
		return t.Medium.Url
	}
	if t.Default != nil && t.Default.Url != "" {
		return t.Default.Url
	}
	if t.High != nil && t.High.Url != "" {
		return t.High.Url
	}
	return ""
}

// channelLogo picks a channel logo in the high -> medium -> default
// preference order.
func channelLogo(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	if t.High != nil && t.High.Url != "" {
		return t.High.Url
	}
	if t.Medium != nil && t.Medium.Url != "" {
		return t.Medium.Url
	}
	if t.Default != nil && t.Default.Url != "" {
		return t.Default.Url
	}
	return ""
}

// ResolveSingleVideo fetches full metadata for one video id, creating
// the owning channel (hidden) when it is not yet in the directory. The
// video upsert is keyed on the id alone: an explicit re-add revives a
// tombstoned record.
func (p *APIProvider) ResolveSingleVideo(ctx context.Context, rawURL, videoID string) (*model.VideoRecord, error) {
	if !p.apiKey.Set() {
		p.log.Error().Msg("YouTube API key is missing")
		return nil, model.ErrNoCredential
	}
	svc, err := p.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(videoID).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video %s from YouTube API: %w", videoID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		p.log.Warn().Str("url", rawURL).Msg("Unable to get video data using the Data API")
		return nil, fmt.Errorf("no api data for video %s", videoID)
	}

	video := resp.Items[0]
	channelID := video.Snippet.ChannelId
	if channelID == "" {
		p.log.Warn().Str("url", rawURL).Msg("Video data carries no channel id")
		return nil, fmt.Errorf("no channel id for video %s", videoID)
	}

	if _, err := p.store.ChannelByExternalID(ctx, channelID); err != nil {
		if err := p.bootstrapChannel(ctx, svc, channelID); err != nil {
			return nil, err
		}
	}

	var viewCount, likeCount *int64
	if video.Statistics != nil {
		vc := int64(video.Statistics.ViewCount)
		lc := int64(video.Statistics.LikeCount)
		viewCount, likeCount = &vc, &lc
	}
	var duration *int64
	if video.ContentDetails != nil && video.ContentDetails.Duration != "" {
		if secs, err := parseISODuration(video.ContentDetails.Duration); err == nil {
			duration = &secs
		}
	}

	uploadDate := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt); err == nil {
		uploadDate = ts.UTC()
	}

	record := &model.VideoRecord{
		VideoID:     videoID,
		ChannelID:   &channelID,
		VideoURL:    rawURL,
		Title:       video.Snippet.Title,
		Description: video.Snippet.Description,
		Thumbnail:   searchThumbnail(video.Snippet.Thumbnails),
		UploadDate:  uploadDate,
		ViewCount:   viewCount,
		LikeCount:   likeCount,
		Duration:    duration,
		IsShort:     model.ClassifyShort(duration, rawURL),
	}
	if err := p.store.UpsertVideo(ctx, record); err != nil {
		return nil, err
	}
	return p.store.FindByVideoID(ctx, videoID)
}

// bootstrapChannel creates a hidden directory entry for a channel first
// seen through single-URL ingestion.
func (p *APIProvider) bootstrapChannel(ctx context.Context, svc *ytapi.Service, channelID string) error {
	p.log.Info().Str("channel_id", channelID).Msg("Channel not in directory, bootstrapping")

	resp, err := svc.Channels.List([]string{"snippet"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get channel %s from YouTube API: %w", channelID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return fmt.Errorf("no api data for channel %s", channelID)
	}

	snippet := resp.Items[0].Snippet
	return p.store.UpsertChannel(ctx, &model.Channel{
		ChannelID:   channelID,
		Name:        snippet.Title,
		Username:    strings.TrimPrefix(snippet.CustomUrl, "@"),
		Description: snippet.Description,
		LogoURL:     channelLogo(snippet.Thumbnails),
		Hidden:      true,
	})
}
