package provider

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediapulse-hub/video-ingest/model"
	"github.com/mediapulse-hub/video-ingest/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testRecord(videoID, channelID string) *model.VideoRecord {
	dur := int64(600)
	views := int64(100)
	return &model.VideoRecord{
		VideoID:    videoID,
		ChannelID:  &channelID,
		VideoURL:   model.WatchURL(videoID, false),
		Title:      "title " + videoID,
		UploadDate: time.Date(2025, 3, 21, 12, 0, 0, 0, time.UTC),
		ViewCount:  &views,
		Duration:   &dur,
	}
}

func seedChannel(t *testing.T, st *store.SQLiteStore, channelID string) {
	t.Helper()
	require.NoError(t, st.UpsertChannel(context.Background(), &model.Channel{
		ChannelID: channelID,
		Name:      "Channel " + channelID,
		Username:  "user-" + channelID,
	}))
}

func TestReconcileInsertThenUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedChannel(t, st, "UC1")
	r := reconciler{store: st, log: zerolog.Nop()}

	existing, err := st.ExistingVideoIDs(ctx, []string{"UC1"})
	require.NoError(t, err)
	tombstoned, err := st.TombstonedVideoIDs(ctx, []string{"UC1"})
	require.NoError(t, err)

	stored, err := r.apply(ctx, testRecord("vid1", "UC1"), existing, tombstoned)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "vid1", stored.VideoID)

	// Same payload again: updates in place, no duplicate.
	again := testRecord("vid1", "UC1")
	again.Title = "updated title"
	stored, err = r.apply(ctx, again, existing, tombstoned)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "updated title", stored.Title)

	all, err := st.QueryVideos(ctx, store.VideoQuery{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReconcileSkipsTombstonedVideo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedChannel(t, st, "UC1")
	r := reconciler{store: st, log: zerolog.Nop()}

	require.NoError(t, st.InsertVideo(ctx, testRecord("vid1", "UC1")))
	require.NoError(t, st.SoftDeleteVideo(ctx, "vid1"))

	existing, err := st.ExistingVideoIDs(ctx, []string{"UC1"})
	require.NoError(t, err)
	tombstoned, err := st.TombstonedVideoIDs(ctx, []string{"UC1"})
	require.NoError(t, err)
	assert.Contains(t, tombstoned, "vid1")

	stored, err := r.apply(ctx, testRecord("vid1", "UC1"), existing, tombstoned)
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = st.FindByVideoID(ctx, "vid1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
