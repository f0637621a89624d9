package provider

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mediapulse-hub/video-ingest/model"
	"github.com/mediapulse-hub/video-ingest/store"
)

// reconciler applies the batch-ingestion write policy shared by both
// providers: a tombstoned id is skipped, an active id is updated in
// place, anything else is inserted.
type reconciler struct {
	store store.VideoStore
	log   zerolog.Logger
}

// apply resolves one fetched record against the prefetched id sets and
// writes it. It returns the stored record, or nil when the id was
// skipped as tombstoned. Storage errors propagate.
func (r *reconciler) apply(ctx context.Context, rec *model.VideoRecord, existing, tombstoned map[string]struct{}) (*model.VideoRecord, error) {
	if _, ok := tombstoned[rec.VideoID]; ok {
		r.log.Info().Str("video_id", rec.VideoID).Msg("Skipped deleted video")
		return nil, nil
	}

	if _, ok := existing[rec.VideoID]; ok {
		r.log.Info().Str("video_id", rec.VideoID).Msg("Updating video")
		if err := r.store.UpdateVideo(ctx, rec); err != nil {
			return nil, err
		}
	} else {
		r.log.Info().Str("video_id", rec.VideoID).Msg("Inserting video")
		if err := r.store.InsertVideo(ctx, rec); err != nil {
			return nil, err
		}
		// A repeat of the same id later in this batch must update, not
		// duplicate.
		existing[rec.VideoID] = struct{}{}
	}

	return r.store.FindByVideoID(ctx, rec.VideoID)
}
