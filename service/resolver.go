package service

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mediapulse-hub/video-ingest/model"
	"github.com/mediapulse-hub/video-ingest/provider"
)

// Resolver ingests a single video from an arbitrary URL, using the same
// primary-then-fallback strategy as batch fetching.
type Resolver struct {
	primary  provider.MetadataProvider
	fallback provider.MetadataProvider
	log      zerolog.Logger
}

// NewResolver wires the single-video resolver.
func NewResolver(primary, fallback provider.MetadataProvider, logger zerolog.Logger) *Resolver {
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		log:      logger.With().Str("component", "resolver").Logger(),
	}
}

// ExtractVideoID pulls the video id out of the three supported URL
// shapes: youtu.be short links, watch URLs with a v query parameter, and
// /shorts/ paths. Anything else yields model.ErrUnsupportedURL.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", model.ErrUnsupportedURL
	}

	if u.Host == "youtu.be" {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
		return "", model.ErrUnsupportedURL
	}

	if u.Host == "www.youtube.com" || u.Host == "youtube.com" {
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		if strings.HasPrefix(u.Path, "/shorts/") {
			if id := path.Base(u.Path); id != "" && id != "shorts" {
				return id, nil
			}
		}
	}

	return "", model.ErrUnsupportedURL
}

// ResolveVideoFromURL extracts the video id and resolves full metadata,
// falling back to the scrape provider when the API cannot deliver. Both
// providers failing yields model.ErrResolveFailed.
func (r *Resolver) ResolveVideoFromURL(ctx context.Context, rawURL string) (*model.VideoRecord, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	r.log.Info().Str("url", rawURL).Str("video_id", videoID).Msg("Resolving video using the primary provider")
	rec, err := r.primary.ResolveSingleVideo(ctx, rawURL, videoID)
	if err == nil {
		return rec, nil
	}

	r.log.Warn().Err(err).Str("url", rawURL).Msg("Primary provider failed, resolving using fallback")
	rec, fallbackErr := r.fallback.ResolveSingleVideo(ctx, rawURL, videoID)
	if fallbackErr != nil {
		r.log.Error().Err(fallbackErr).Str("url", rawURL).Msg("All providers failed to resolve video")
		return nil, errors.Join(model.ErrResolveFailed, err, fallbackErr)
	}
	return rec, nil
}
