package service

import (
	"context"

	"github.com/mediapulse-hub/video-ingest/model"
	"github.com/mediapulse-hub/video-ingest/provider"
	"github.com/mediapulse-hub/video-ingest/store"
)

// fetchCall records one FetchVideosData invocation.
type fetchCall struct {
	Usernames  []string
	ChannelIDs []string
}

// fakeProvider implements provider.MetadataProvider with canned results
// and call recording.
type fakeProvider struct {
	fetchResult  provider.FetchResult
	fetchErr     error
	fetchCalls   []fetchCall
	resolveRec   *model.VideoRecord
	resolveErr   error
	resolveCalls []string
}

func (f *fakeProvider) FetchVideosData(ctx context.Context, usernames, channelIDs []string) (provider.FetchResult, error) {
	f.fetchCalls = append(f.fetchCalls, fetchCall{Usernames: usernames, ChannelIDs: channelIDs})
	return f.fetchResult, f.fetchErr
}

func (f *fakeProvider) ResolveSingleVideo(ctx context.Context, rawURL, videoID string) (*model.VideoRecord, error) {
	f.resolveCalls = append(f.resolveCalls, videoID)
	return f.resolveRec, f.resolveErr
}

// fakeDirectoryStore answers directory lookups from a fixed ref list.
// Every other VideoStore method panics via the embedded nil interface;
// the orchestrator must not touch them.
type fakeDirectoryStore struct {
	store.VideoStore
	refs   []model.ChannelRef
	byName map[string]model.ChannelRef
}

func (f *fakeDirectoryStore) ChannelDirectory(ctx context.Context, visibleOnly bool) ([]model.ChannelRef, error) {
	return f.refs, nil
}

func (f *fakeDirectoryStore) DirectoryByNames(ctx context.Context, names []string) ([]model.ChannelRef, error) {
	var out []model.ChannelRef
	for _, name := range names {
		if ref, ok := f.byName[name]; ok {
			out = append(out, ref)
		}
	}
	return out, nil
}

func videoFor(videoID string) model.VideoRecord {
	return model.VideoRecord{VideoID: videoID, VideoURL: model.WatchURL(videoID, false)}
}
