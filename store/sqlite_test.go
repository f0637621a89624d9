package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediapulse-hub/video-ingest/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedChannel(t *testing.T, st *SQLiteStore, id, name, username string, hidden bool) {
	t.Helper()
	require.NoError(t, st.UpsertChannel(context.Background(), &model.Channel{
		ChannelID: id,
		Name:      name,
		Username:  username,
		LogoURL:   "https://yt3.example/" + id + ".jpg",
		Hidden:    hidden,
	}))
}

func seedVideo(t *testing.T, st *SQLiteStore, videoID, channelID string, isShort bool, uploadDate time.Time, viewCount int64) {
	t.Helper()
	var chID *string
	if channelID != "" {
		chID = &channelID
	}
	url := model.WatchURL(videoID, isShort)
	require.NoError(t, st.InsertVideo(context.Background(), &model.VideoRecord{
		VideoID:    videoID,
		ChannelID:  chID,
		VideoURL:   url,
		Title:      "Video " + videoID,
		UploadDate: uploadDate,
		ViewCount:  &viewCount,
		IsShort:    isShort,
	}))
}

func TestVideoLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedChannel(t, st, "UC1", "News Desk", "newsdesk", false)
	seedVideo(t, st, "vid1", "UC1", false, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 100)

	rec, err := st.FindByVideoID(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "Video vid1", rec.Title)
	assert.Equal(t, "News Desk", rec.ChannelName)
	require.NotNil(t, rec.ViewCount)
	assert.Equal(t, int64(100), *rec.ViewCount)

	rec.Title = "Renamed"
	require.NoError(t, st.UpdateVideo(ctx, rec))
	rec, err = st.FindByVideoID(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rec.Title)

	require.NoError(t, st.SoftDeleteVideo(ctx, "vid1"))
	_, err = st.FindByVideoID(ctx, "vid1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Deleting twice reports not found.
	assert.ErrorIs(t, st.SoftDeleteVideo(ctx, "vid1"), model.ErrNotFound)

	existing, err := st.ExistingVideoIDs(ctx, []string{"UC1"})
	require.NoError(t, err)
	assert.Empty(t, existing)
	tombstoned, err := st.TombstonedVideoIDs(ctx, []string{"UC1"})
	require.NoError(t, err)
	assert.Contains(t, tombstoned, "vid1")
}

func TestUpsertVideoRevivesTombstone(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedChannel(t, st, "UC1", "News Desk", "newsdesk", false)
	seedVideo(t, st, "vid1", "UC1", false, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 100)
	require.NoError(t, st.SoftDeleteVideo(ctx, "vid1"))

	chID := "UC1"
	require.NoError(t, st.UpsertVideo(ctx, &model.VideoRecord{
		VideoID:    "vid1",
		ChannelID:  &chID,
		VideoURL:   model.WatchURL("vid1", false),
		Title:      "Re-added",
		UploadDate: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	}))

	rec, err := st.FindByVideoID(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "Re-added", rec.Title)
	assert.Nil(t, rec.DeletedAt)
}

func TestQueryVideos(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedChannel(t, st, "UC1", "News Desk", "newsdesk", false)
	seedChannel(t, st, "UC2", "Cooking", "cooking", false)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedVideo(t, st, "long1", "UC1", false, base.Add(1*time.Hour), 500)
	seedVideo(t, st, "long2", "UC1", false, base.Add(2*time.Hour), 900)
	seedVideo(t, st, "short1", "UC1", true, base.Add(3*time.Hour), 50)
	seedVideo(t, st, "long3", "UC2", false, base.Add(4*time.Hour), 100)

	short := false
	out, err := st.QueryVideos(ctx, VideoQuery{IsShort: &short, SortField: "upload_date", SortDesc: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "long3", out[0].VideoID)
	assert.Equal(t, "long2", out[1].VideoID)

	ch := "UC1"
	out, err = st.QueryVideos(ctx, VideoQuery{ChannelID: &ch, IsShort: &short, ExcludeVideoID: "long1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "long2", out[0].VideoID)

	out, err = st.QueryVideos(ctx, VideoQuery{TitleContains: "long1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "long1", out[0].VideoID)

	out, err = st.QueryVideos(ctx, VideoQuery{Filters: map[string]string{"title": "long", "bogus_column": "x"}, SortField: "view_count", SortDesc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "long2", out[0].VideoID)
	assert.Equal(t, "long1", out[1].VideoID)

	out, err = st.QueryVideos(ctx, VideoQuery{Filters: map[string]string{"title": "long"}, SortField: "view_count", SortDesc: true, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "long3", out[0].VideoID)
}

func TestIncrementHit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	var hit *model.HitCount
	var err error
	for i := 0; i < 3; i++ {
		hit, err = st.IncrementHit(ctx, "vid1", 3)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), hit.Raw)
	assert.Equal(t, int64(9), hit.Weighted)
	assert.Equal(t, int64(3), hit.Multiplier)
	assert.WithinDuration(t, time.Now().UTC(), hit.UpdatedAt, time.Minute)
}

func TestTrendingWindow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedChannel(t, st, "UC1", "News Desk", "newsdesk", false)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedVideo(t, st, "recent", "UC1", false, base, 100)
	seedVideo(t, st, "stale", "UC1", false, base, 500)
	seedVideo(t, st, "old", "UC1", false, base, 900)
	seedVideo(t, st, "recent-short", "UC1", true, base, 9000)

	backdate := func(videoID string, age time.Duration) {
		_, err := st.IncrementHit(ctx, videoID, 3)
		require.NoError(t, err)
		_, err = st.db.Exec("UPDATE video_hits SET updated_at = ? WHERE video_id = ?",
			time.Now().UTC().Add(-age), videoID)
		require.NoError(t, err)
	}
	backdate("recent", 1*24*time.Hour)
	backdate("stale", 4*24*time.Hour)
	backdate("old", 10*24*time.Hour)
	backdate("recent-short", 1*24*time.Hour)

	// Only the video hit within the window qualifies, regardless of its
	// view-count rank among all three.
	out, err := st.Trending(ctx, 3*24*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "recent", out[0].VideoID)
}

func TestChannelDirectory(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedChannel(t, st, "UC1", "News Desk", "newsdesk", false)
	seedChannel(t, st, "UC2", "Cooking", "cooking", false)
	seedChannel(t, st, "UC3", "Hidden Gems", "hiddengems", true)

	refs, err := st.ChannelDirectory(ctx, true)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, model.ChannelRef{Username: "cooking", ChannelID: "UC2"}, refs[0])
	assert.Equal(t, model.ChannelRef{Username: "newsdesk", ChannelID: "UC1"}, refs[1])

	refs, err = st.ChannelDirectory(ctx, false)
	require.NoError(t, err)
	assert.Len(t, refs, 3)

	refs, err = st.DirectoryByNames(ctx, []string{"News Desk", "No Such Channel"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "UC1", refs[0].ChannelID)

	ch, err := st.ChannelByUsername(ctx, "cooking")
	require.NoError(t, err)
	assert.Equal(t, "UC2", ch.ChannelID)

	_, err = st.ChannelByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, model.ErrChannelNotFound)

	_, err = st.ChannelByExternalID(ctx, "UC404")
	assert.ErrorIs(t, err, model.ErrChannelNotFound)
}
