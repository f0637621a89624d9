package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

var (
	uploadDateRe  = regexp.MustCompile(`"uploadDate":"([^"]+)"`)
	initialDataRe = regexp.MustCompile(`(?s)ytInitialData\s*=\s*(\{.+?\});`)
	ogImageRe     = regexp.MustCompile(`<meta property="og:image" content="([^"]+)"`)
)

// pageFetcher performs the one-shot HTML fetches the scrape path needs
// for fields yt-dlp does not expose.
type pageFetcher struct {
	client *http.Client
	log    zerolog.Logger
}

func newPageFetcher(timeout time.Duration, logger zerolog.Logger) *pageFetcher {
	return &pageFetcher{
		client: &http.Client{Timeout: timeout},
		log:    logger,
	}
}

func (f *pageFetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 VideoIngest/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}
	return string(body), nil
}

// uploadDate fetches a watch page and extracts the uploadDate field.
// Falls back to now when the page or the field is unavailable.
func (f *pageFetcher) uploadDate(ctx context.Context, videoURL string) time.Time {
	html, err := f.fetch(ctx, videoURL)
	if err != nil {
		f.log.Warn().Err(err).Str("url", videoURL).Msg("Failed to fetch watch page for upload date")
		return time.Now().UTC()
	}
	if ts, ok := extractUploadDate(html); ok {
		return ts
	}
	f.log.Debug().Str("url", videoURL).Msg("No upload date on watch page")
	return time.Now().UTC()
}

func extractUploadDate(html string) (time.Time, bool) {
	m := uploadDateRe.FindStringSubmatch(html)
	if m == nil {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, m[1]); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// extractChannelDescription pulls the channel description out of the
// ytInitialData blob embedded in a channel page.
func extractChannelDescription(html string) string {
	m := initialDataRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	var page struct {
		Metadata struct {
			ChannelMetadataRenderer struct {
				Description string `json:"description"`
			} `json:"channelMetadataRenderer"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(m[1]), &page); err != nil {
		return ""
	}
	return page.Metadata.ChannelMetadataRenderer.Description
}

func extractOGImage(html string) string {
	m := ogImageRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return m[1]
}
