package provider

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediapulse-hub/video-ingest/common"
)

func TestParseScrapeLines(t *testing.T) {
	out := []byte(`{"id":"vid1","url":"https://www.youtube.com/watch?v=vid1","title":"First","view_count":120,"duration":300.0}
{"id":"vid2","url":"https://www.youtube.com/shorts/vid2","title":"Second","thumbnails":[{"url":"a.jpg"},{"url":"b.jpg"}]}

{"title":"no id, skipped"}
not json at all
{"id":"vid3","title":"Third"}
`)

	items := parseScrapeLines(out)
	require.Len(t, items, 3)

	assert.Equal(t, "vid1", items[0].ID)
	require.NotNil(t, items[0].Duration)
	assert.Equal(t, 300.0, *items[0].Duration)
	require.NotNil(t, items[0].ViewCount)
	assert.Equal(t, int64(120), *items[0].ViewCount)

	assert.Equal(t, "vid2", items[1].ID)
	assert.Equal(t, "b.jpg", items[1].Thumbnails[len(items[1].Thumbnails)-1].URL)

	assert.Equal(t, "vid3", items[2].ID)
	assert.Nil(t, items[2].Duration)
}

func TestScrapeUnknownUsernameStoresNullChannel(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := NewYtDlpProvider(st, common.Config{}, zerolog.Nop())

	channelID := p.lookupChannelID(ctx, "nobody")
	assert.Nil(t, channelID)

	views := int64(5)
	dur := 240.0
	item := scrapeItem{ID: "vid1", Title: "Orphan", ViewCount: &views, Duration: &dur}
	rec, err := p.itemToRecord(ctx, item, channelID, time.Date(2025, 3, 21, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, st.InsertVideo(ctx, rec))

	got, err := st.FindByVideoID(ctx, "vid1")
	require.NoError(t, err)
	assert.Nil(t, got.ChannelID)
	assert.Equal(t, "", got.ChannelName)
}

func TestItemToRecordKeepsStoredDuration(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedChannel(t, st, "UC1")
	p := NewYtDlpProvider(st, common.Config{}, zerolog.Nop())

	require.NoError(t, st.InsertVideo(ctx, testRecord("vid1", "UC1")))

	chID := "UC1"
	item := scrapeItem{ID: "vid1", Title: "Refetched"}
	rec, err := p.itemToRecord(ctx, item, &chID, time.Date(2025, 3, 22, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, rec.Duration)
	assert.Equal(t, int64(600), *rec.Duration)
}

func TestVideoURLOf(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/shorts/v1",
		videoURLOf(scrapeItem{ID: "v1", URL: "https://www.youtube.com/shorts/v1"}))
	assert.Equal(t, "https://www.youtube.com/watch?v=v2", videoURLOf(scrapeItem{ID: "v2"}))
}
