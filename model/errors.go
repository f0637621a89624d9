package model

import "errors"

var (
	// ErrNotFound indicates a video absent from storage.
	ErrNotFound = errors.New("video not found")

	// ErrChannelNotFound indicates a channel absent from the directory.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNoCredential indicates the API provider has no key configured.
	// It halts only the API attempt; callers escalate to the fallback.
	ErrNoCredential = errors.New("youtube api key is not configured")

	// ErrUnsupportedURL indicates a URL no known shape matches.
	ErrUnsupportedURL = errors.New("unsupported video url")

	// ErrResolveFailed indicates both providers failed to resolve a video.
	ErrResolveFailed = errors.New("video resolution failed on all providers")
)
