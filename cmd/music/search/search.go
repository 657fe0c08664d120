// Package search finds candidate tracks for a free-text query. It asks the
// YouTube Data API first and quietly falls back to the offline catalog, so
// callers always get results in the same shape.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gigurra/aegis/cmd/music/catalog"
	"github.com/samber/lo"
)

const (
	DefaultBaseURL    = "https://www.googleapis.com/youtube/v3"
	DefaultTimeout    = 8 * time.Second
	DefaultMaxResults = 5

	// UnknownDuration is shown for live results; the search endpoint does not
	// report lengths.
	UnknownDuration = "Unknown"
)

// Result is one candidate track.
type Result struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Duration     string `json:"duration"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// FromTrack turns a catalog entry into a result.
func FromTrack(t catalog.Track, duration string) Result {
	return Result{
		ID:           t.ID,
		Title:        t.DisplayTitle(),
		ChannelTitle: t.Artist,
		Duration:     duration,
		ThumbnailURL: catalog.ThumbnailURL(t.ID),
	}
}

// Client searches for music videos.
type Client struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Catalog    *catalog.Catalog
}

// New returns a client for the live API backed by cat for offline results.
func New(apiKey string, cat *catalog.Catalog) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		HTTPClient: http.DefaultClient,
		Catalog:    cat,
	}
}

// Results searches for a song, optionally narrowed by artist.
func (c *Client) Results(ctx context.Context, song, artist string, maxResults int) []Result {
	query := song
	if artist != "" {
		query = song + " " + artist
	}
	return c.Search(ctx, query, maxResults)
}

// First returns the most relevant result, or nil.
func (c *Client) First(ctx context.Context, song, artist string) *Result {
	results := c.Results(ctx, song, artist, 1)
	if len(results) == 0 {
		return nil
	}
	return &results[0]
}

// Search never fails: any problem with the live API yields offline results.
func (c *Client) Search(ctx context.Context, query string, maxResults int) []Result {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	results, err := c.searchLive(ctx, query, maxResults)
	if err == nil {
		slog.Debug("live search succeeded", "query", query, "results", len(results))
		return results
	}

	slog.Warn("live search failed, using offline results", "query", query, "error", err)
	return c.Offline(query, maxResults)
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			Medium  *thumbnail `json:"medium"`
			Default *thumbnail `json:"default"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

type thumbnail struct {
	URL string `json:"url"`
}

func (c *Client) searchLive(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("no API key configured")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query, maxResults), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		switch resp.StatusCode {
		case http.StatusForbidden:
			return nil, fmt.Errorf("search API quota exceeded or invalid key (status 403): %s", strings.TrimSpace(string(body)))
		case http.StatusBadRequest:
			return nil, fmt.Errorf("search API rejected parameters (status 400): %s", strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(data.Items) == 0 {
		return nil, fmt.Errorf("no search results found")
	}

	results := lo.Map(data.Items, func(item searchItem, _ int) Result {
		thumb := catalog.ThumbnailURL(item.ID.VideoID)
		if t := item.Snippet.Thumbnails.Medium; t != nil && t.URL != "" {
			thumb = t.URL
		} else if t := item.Snippet.Thumbnails.Default; t != nil && t.URL != "" {
			thumb = t.URL
		}
		return Result{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			Duration:     UnknownDuration,
			ThumbnailURL: thumb,
		}
	})
	return results, nil
}

func (c *Client) searchURL(query string, maxResults int) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoCategoryId", "10")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("q", query+" music OR song OR audio OR official")
	params.Set("key", c.APIKey)
	params.Set("order", "relevance")

	return strings.TrimSuffix(base, "/") + "/search?" + params.Encode()
}
