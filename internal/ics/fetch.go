package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appLog "calplan/internal/log"
)

// maxBodyBytes bounds a fetched or read ICS payload.
const maxBodyBytes = 10 << 20

// Source identifies where an ICS payload came from, for logging.
type Source struct {
	ID  string
	URL string
}

// Fetcher downloads ICS feeds for import.
type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 15 * time.Second}}
}

// Fetch GETs url and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("source URL is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")

	appLog.Info("ics fetch start", "url", redactURL(url))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redactURL(url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", redactURL(url), resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	appLog.Info("ics fetch success", "url", redactURL(url), "bytes", len(body))
	return body, nil
}

// Load reads an ICS payload from an http(s) URL or a local path.
func (f *Fetcher) Load(ctx context.Context, location string) ([]byte, Source, error) {
	src := Source{ID: location, URL: location}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		body, err := f.Fetch(ctx, location)
		return body, src, err
	}
	src.URL = ""
	file, err := os.Open(location)
	if err != nil {
		return nil, src, err
	}
	defer file.Close()
	body, err := io.ReadAll(io.LimitReader(file, maxBodyBytes))
	return body, src, err
}

// redactURL keeps only scheme and host of a feed URL; private calendar
// links carry their secret in the path or query.
func redactURL(u string) string {
	if u == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "ics://...(redacted)"
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host + "/...(redacted)"
}
