package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"schoolplanner/internal/config"
	"schoolplanner/internal/log"
)

// Fetch outcomes reported to the observer.
const (
	FetchFresh       = "fresh"
	FetchNotModified = "not_modified"
	FetchStale       = "stale"
	FetchError       = "error"
)

// FetchResult is the payload of one remote calendar.
type FetchResult struct {
	URL       string
	Body      []byte
	FromCache bool
}

// cacheMeta holds the HTTP validators of a cached feed.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads calendar feeds, revalidating a disk cache with
// ETag / Last-Modified and falling back to it when the network fails.
type Fetcher struct {
	client   *http.Client
	cacheDir string

	// Observe, if set, receives one of the Fetch* outcomes per call.
	Observe func(result string)
}

func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./data/ics-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Fetch retrieves rawURL, using and refreshing the cache.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (FetchResult, error) {
	res, outcome, err := f.fetch(ctx, rawURL)
	if f.Observe != nil {
		f.Observe(outcome)
	}
	return res, err
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (FetchResult, string, error) {
	if rawURL == "" {
		return FetchResult{}, FetchError, errors.New("ics: empty URL")
	}
	dir := f.cachePath(rawURL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return FetchResult{}, FetchError, err
	}

	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))
	stale := func(cause error) (FetchResult, string, error) {
		if len(cached) == 0 {
			return FetchResult{}, FetchError, cause
		}
		log.Error("ics: fetch failed, using cached body", cause, "url", redactURL(rawURL))
		return FetchResult{URL: rawURL, Body: cached, FromCache: true}, FetchStale, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchResult{}, FetchError, err
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	log.Info("ics: fetch start", "url", redactURL(rawURL))
	resp, err := f.client.Do(req)
	if err != nil {
		return stale(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return stale(err)
		}
		next := cacheMeta{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCache(dir, next, body); err != nil {
			log.Error("ics: cache save failed", err, "url", redactURL(rawURL))
		}
		return FetchResult{URL: rawURL, Body: body}, FetchFresh, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, FetchError, errors.New("ics: 304 Not Modified without a cached body")
		}
		log.Info("ics: not modified, using cache", "url", redactURL(rawURL))
		return FetchResult{URL: rawURL, Body: cached, FromCache: true}, FetchNotModified, nil

	default:
		return stale(fmt.Errorf("ics: unexpected status %s", resp.Status))
	}
}

func (f *Fetcher) cachePath(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

func saveCache(dir string, meta cacheMeta, body []byte) error {
	// Body first so the metadata never points at a missing body.
	if err := config.WriteFileAtomic(filepath.Join(dir, "body.ics"), body); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(filepath.Join(dir, "meta.json"), data)
}

// redactURL keeps only scheme and host; calendar URLs often embed tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
