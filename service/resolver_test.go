package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediapulse-hub/video-ingest/model"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://youtu.be/abc123", want: "abc123"},
		{url: "https://www.youtube.com/watch?v=abc123", want: "abc123"},
		{url: "https://www.youtube.com/watch?v=abc123&t=30s", want: "abc123"},
		{url: "https://youtube.com/watch?v=abc123", want: "abc123"},
		{url: "https://www.youtube.com/shorts/abc123", want: "abc123"},
		{url: "https://example.com/other", wantErr: true},
		{url: "https://www.youtube.com/playlist?list=PL1", wantErr: true},
		{url: "https://youtu.be/", wantErr: true},
		{url: "https://www.youtube.com/shorts/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrUnsupportedURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveVideoFromURLPrimarySuccess(t *testing.T) {
	rec := videoFor("abc123")
	primary := &fakeProvider{resolveRec: &rec}
	fallback := &fakeProvider{}

	r := NewResolver(primary, fallback, zerolog.Nop())
	got, err := r.ResolveVideoFromURL(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)

	assert.Equal(t, "abc123", got.VideoID)
	assert.Equal(t, []string{"abc123"}, primary.resolveCalls)
	assert.Empty(t, fallback.resolveCalls)
}

func TestResolveVideoFromURLFallsBack(t *testing.T) {
	rec := videoFor("abc123")
	primary := &fakeProvider{resolveErr: model.ErrNoCredential}
	fallback := &fakeProvider{resolveRec: &rec}

	r := NewResolver(primary, fallback, zerolog.Nop())
	got, err := r.ResolveVideoFromURL(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)

	assert.Equal(t, "abc123", got.VideoID)
	assert.Equal(t, []string{"abc123"}, fallback.resolveCalls)
}

func TestResolveVideoFromURLBothFail(t *testing.T) {
	primary := &fakeProvider{resolveErr: model.ErrNoCredential}
	fallback := &fakeProvider{resolveErr: errors.New("yt-dlp failed")}

	r := NewResolver(primary, fallback, zerolog.Nop())
	_, err := r.ResolveVideoFromURL(context.Background(), "https://youtu.be/abc123")
	assert.ErrorIs(t, err, model.ErrResolveFailed)
}

func TestResolveVideoFromURLUnsupportedShape(t *testing.T) {
	primary := &fakeProvider{}
	fallback := &fakeProvider{}

	r := NewResolver(primary, fallback, zerolog.Nop())
	_, err := r.ResolveVideoFromURL(context.Background(), "https://example.com/other")
	assert.ErrorIs(t, err, model.ErrUnsupportedURL)
	assert.Empty(t, primary.resolveCalls)
	assert.Empty(t, fallback.resolveCalls)
}
