package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mediapulse-hub/video-ingest/common"
	"github.com/mediapulse-hub/video-ingest/model"
	"github.com/mediapulse-hub/video-ingest/store"
)

// YtDlpProvider fetches video metadata by invoking the yt-dlp binary and
// scraping watch/channel pages for the fields the tool does not expose.
// It is the fallback provider and needs no credential.
type YtDlpProvider struct {
	store       store.VideoStore
	binary      string
	playlistEnd int
	timeout     time.Duration
	concurrency int
	pages       *pageFetcher
	log         zerolog.Logger
}

// NewYtDlpProvider creates the scrape provider.
func NewYtDlpProvider(st store.VideoStore, cfg common.Config, logger zerolog.Logger) *YtDlpProvider {
	l := logger.With().Str("provider", "yt-dlp").Logger()
	return &YtDlpProvider{
		store:       st,
		binary:      cfg.YtDlpPath,
		playlistEnd: cfg.ScrapePlaylistEnd,
		timeout:     cfg.ScrapeTimeout,
		concurrency: cfg.PageConcurrency,
		pages:       newPageFetcher(cfg.HTTPTimeout, l),
		log:         l,
	}
}

// scrapeItem is one line of yt-dlp's flat-playlist NDJSON output, or the
// single -J object for one video.
type scrapeItem struct {
	ID          string        `json:"id"`
	URL         string        `json:"url"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ChannelID   string        `json:"channel_id"`
	Channel     string        `json:"channel"`
	UploaderID  string        `json:"uploader_id"`
	Thumbnail   string        `json:"thumbnail"`
	Thumbnails  []scrapeThumb `json:"thumbnails"`
	ViewCount   *int64        `json:"view_count"`
	LikeCount   *int64        `json:"like_count"`
	Duration    *float64      `json:"duration"`
}

type scrapeThumb struct {
	URL string `json:"url"`
}

func (p *YtDlpProvider) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	if out.Len() == 0 {
		return nil, errors.New("yt-dlp returned no output")
	}
	return out.Bytes(), nil
}

// FetchVideosData scrapes each channel's most recent uploads. A channel
// the tool cannot list is logged and skipped; as the last escalation
// step there is nowhere further to report failures to.
func (p *YtDlpProvider) FetchVideosData(ctx context.Context, usernames, channelIDs []string) (FetchResult, error) {
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

	for _, username := range usernames {
		out, err := p.run(ctx, "-j", "--flat-playlist",
			"--playlist-end", strconv.Itoa(p.playlistEnd),
			"https://www.youtube.com/c/"+username)
		if err != nil {
			p.log.Error().Err(err).Str("username", username).Msg("yt-dlp failed for channel")
			continue
		}

		items := parseScrapeLines(out)
		if len(items) == 0 {
			p.log.Warn().Str("username", username).Msg("yt-dlp produced no parseable items")
			continue
		}

		channelID := p.lookupChannelID(ctx, username)

		// Drop tombstoned ids before spending page fetches on them.
		live := items[:0]
		for _, item := range items {
			if _, ok := tombstoned[item.ID]; ok {
				p.log.Info().Str("video_id", item.ID).Msg("Skipped deleted video")
				continue
			}
			live = append(live, item)
		}

		uploadDates := p.fetchUploadDates(ctx, live)

		for i, item := range live {
			record, err := p.itemToRecord(ctx, item, channelID, uploadDates[i])
			if err != nil {
				return result, err
			}
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

func parseScrapeLines(out []byte) []scrapeItem {
	var items []scrapeItem
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var item scrapeItem
		if err := json.Unmarshal(line, &item); err != nil || item.ID == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// lookupChannelID resolves a username through the directory. An unknown
// username yields a nil channel reference and the video is stored with a
// NULL channel, preserving best-effort parity with the scrape source.
func (p *YtDlpProvider) lookupChannelID(ctx context.Context, username string) *string {
	ch, err := p.store.ChannelByUsername(ctx, username)
	if err != nil {
		p.log.Warn().Str("username", username).Msg("No directory entry for scraped channel, storing videos without a channel reference")
		return nil
	}
	return &ch.ChannelID
}

// fetchUploadDates resolves upload timestamps for a batch of items with
// bounded concurrency. The result slice is aligned with items.
func (p *YtDlpProvider) fetchUploadDates(ctx context.Context, items []scrapeItem) []time.Time {
	dates := make([]time.Time, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, item := range items {
		g.Go(func() error {
			dates[i] = p.pages.uploadDate(gctx, videoURLOf(item))
			return nil
		})
	}
	g.Wait()
	return dates
}

func videoURLOf(item scrapeItem) string {
	if item.URL != "" {
		return item.URL
	}
	return model.WatchURL(item.ID, false)
}

func (p *YtDlpProvider) itemToRecord(ctx context.Context, item scrapeItem, channelID *string, uploadDate time.Time) (*model.VideoRecord, error) {
	videoURL := videoURLOf(item)

	var duration *int64
	if item.Duration != nil {
		secs := int64(*item.Duration)
		duration = &secs
	} else {
		// Never overwrite a known duration with unknown.
		prev, err := p.store.FindByVideoID(ctx, item.ID)
		if err == nil {
			duration = prev.Duration
		} else if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
	}

	var thumbnail string
	if len(item.Thumbnails) > 0 {
		thumbnail = item.Thumbnails[len(item.Thumbnails)-1].URL
	}

	viewCount := int64(0)
	if item.ViewCount != nil {
		viewCount = *item.ViewCount
	}

	return &model.VideoRecord{
		VideoID:     item.ID,
		ChannelID:   channelID,
		VideoURL:    videoURL,
		Title:       item.Title,
		Description: item.Description,
		Thumbnail:   thumbnail,
		UploadDate:  uploadDate,
		ViewCount:   &viewCount,
		LikeCount:   item.LikeCount,
		Duration:    duration,
		IsShort:     strings.Contains(videoURL, "shorts"),
	}, nil
}

// ResolveSingleVideo scrapes full metadata for one URL with yt-dlp -J,
// bootstrapping an unknown channel from its page HTML. Upsert is keyed
// on the video id alone, matching the API provider's explicit re-add
// policy.
func (p *YtDlpProvider) ResolveSingleVideo(ctx context.Context, rawURL, videoID string) (*model.VideoRecord, error) {
	out, err := p.run(ctx, "-J", rawURL)
	if err != nil {
		return nil, err
	}

	var item scrapeItem
	if err := json.Unmarshal(bytes.TrimSpace(out), &item); err != nil {
		return nil, fmt.Errorf("yt-dlp output unparseable for %s: %w", rawURL, err)
	}
	if item.ID == "" || item.ChannelID == "" {
		p.log.Warn().Str("url", rawURL).Msg("Unable to get video data using yt-dlp")
		return nil, fmt.Errorf("incomplete yt-dlp data for %s", rawURL)
	}

	uploadDate := p.pages.uploadDate(ctx, rawURL)

	if _, err := p.store.ChannelByExternalID(ctx, item.ChannelID); err != nil {
		if err := p.bootstrapChannel(ctx, item); err != nil {
			return nil, err
		}
	}

	var duration *int64
	if item.Duration != nil {
		secs := int64(*item.Duration)
		duration = &secs
	}

	channelID := item.ChannelID
	record := &model.VideoRecord{
		VideoID:     item.ID,
		ChannelID:   &channelID,
		VideoURL:    rawURL,
		Title:       item.Title,
		Description: item.Description,
		Thumbnail:   item.Thumbnail,
		UploadDate:  uploadDate,
		ViewCount:   item.ViewCount,
		LikeCount:   item.LikeCount,
		Duration:    duration,
		IsShort:     model.ClassifyShort(duration, rawURL),
	}
	if err := p.store.UpsertVideo(ctx, record); err != nil {
		return nil, err
	}
	return p.store.FindByVideoID(ctx, item.ID)
}

// bootstrapChannel creates a hidden directory entry from the channel
// page: description from the embedded ytInitialData blob, logo from the
// og:image tag with the tool's own thumbnail list as fallback.
func (p *YtDlpProvider) bootstrapChannel(ctx context.Context, item scrapeItem) error {
	p.log.Info().Str("channel_id", item.ChannelID).Msg("Channel not in directory, bootstrapping from channel page")

	var description, logo string
	html, err := p.pages.fetch(ctx, "https://www.youtube.com/channel/"+item.ChannelID)
	if err != nil {
		p.log.Warn().Err(err).Str("channel_id", item.ChannelID).Msg("Failed to fetch channel page")
	} else {
		description = extractChannelDescription(html)
		logo = extractOGImage(html)
	}
	if logo == "" && len(item.Thumbnails) > 0 {
		logo = item.Thumbnails[0].URL
	}

	return p.store.UpsertChannel(ctx, &model.Channel{
		ChannelID:   item.ChannelID,
		Name:        item.Channel,
		Username:    strings.TrimPrefix(item.UploaderID, "@"),
		Description: description,
		LogoURL:     logo,
		Hidden:      true,
	})
}
