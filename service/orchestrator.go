// Package service coordinates providers and storage into the engine's
// caller-facing operations.
package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mediapulse-hub/video-ingest/common"
	"github.com/mediapulse-hub/video-ingest/model"
	"github.com/mediapulse-hub/video-ingest/provider"
	"github.com/mediapulse-hub/video-ingest/store"
)

// Orchestrator drives the primary-then-fallback fetch strategy across a
// batch of channels. Channel-level failures never fail the batch; they
// escalate to the fallback provider.
type Orchestrator struct {
	store    store.VideoStore
	primary  provider.MetadataProvider
	fallback provider.MetadataProvider
	log      zerolog.Logger
}

// NewOrchestrator wires the orchestrator with its two providers.
func NewOrchestrator(st store.VideoStore, primary, fallback provider.MetadataProvider, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		primary:  primary,
		fallback: fallback,
		log:      logger.With().Str("component", "orchestrator").Logger(),
	}
}

// FetchChannelVideos ingests recent videos for the named channels, or
// for every visible channel when names is empty. Names unknown to the
// directory are silently dropped.
func (o *Orchestrator) FetchChannelVideos(ctx context.Context, channelNames []string) ([]model.VideoRecord, error) {
	logger := o.log.With().Str("run_id", common.GenerateRunID()).Logger()

	var refs []model.ChannelRef
	var err error
	if len(channelNames) == 0 {
		logger.Info().Msg("Fetching videos for all visible channels")
		refs, err = o.store.ChannelDirectory(ctx, true)
	} else {
		logger.Info().Str("channels", strings.Join(channelNames, ", ")).Msg("Fetching videos for channels")
		refs, err = o.store.DirectoryByNames(ctx, channelNames)
	}
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		logger.Info().Msg("No matching channels in directory")
		return nil, nil
	}

	usernames := make([]string, len(refs))
	channelIDs := make([]string, len(refs))
	idToUsername := make(map[string]string, len(refs))
	for i, ref := range refs {
		usernames[i] = ref.Username
		channelIDs[i] = ref.ChannelID
		idToUsername[ref.ChannelID] = ref.Username
	}

	logger.Info().Strs("usernames", usernames).Msg("Fetching videos using the primary provider")
	primaryResult, err := o.primary.FetchVideosData(ctx, usernames, channelIDs)
	if err != nil {
		return nil, err
	}

	switch {
	case len(primaryResult.Stored) == 0:
		// Nothing stored at all: treat the primary as failed and
		// re-issue the entire batch.
		logger.Warn().Strs("usernames", usernames).Msg("Primary provider failed, re-issuing full batch to fallback")
		fallbackResult, err := o.fallback.FetchVideosData(ctx, usernames, channelIDs)
		if err != nil {
			return nil, err
		}
		return fallbackResult.Stored, nil

	case len(primaryResult.FailedChannelIDs) > 0:
		failedUsernames := make([]string, 0, len(primaryResult.FailedChannelIDs))
		for _, id := range primaryResult.FailedChannelIDs {
			failedUsernames = append(failedUsernames, idToUsername[id])
		}
		logger.Warn().Strs("channel_ids", primaryResult.FailedChannelIDs).Msg("Primary provider failed for a channel subset, escalating to fallback")
		fallbackResult, err := o.fallback.FetchVideosData(ctx, failedUsernames, primaryResult.FailedChannelIDs)
		if err != nil {
			return nil, err
		}
		return append(primaryResult.Stored, fallbackResult.Stored...), nil

	default:
		return primaryResult.Stored, nil
	}
}
