/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: remote.go
Description: Record sources served over HTTP or HTTPS. The dataset is fetched again on
every iteration, so it must be stable between the sampling and streaming passes.
*/

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a single dataset download
const DefaultFetchTimeout = 30 * time.Second

// RemoteSource reads records from a URL
type RemoteSource struct {
	url    string
	format Format
	client *http.Client
}

// IsURL reports whether location names an HTTP or HTTPS dataset
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// OpenURL creates a remote source. An empty format is detected from the URL path.
func OpenURL(rawURL string, format Format, timeout time.Duration) (*RemoteSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported dataset scheme: %s", u.Scheme)
	}
	if format == "" {
		if format, err = DetectFormat(path.Base(u.Path)); err != nil {
			return nil, err
		}
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &RemoteSource{
		url:    rawURL,
		format: format,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// OpenLocation opens a URL or a file path
func OpenLocation(location string, format Format, timeout time.Duration) (Source, error) {
	if IsURL(location) {
		return OpenURL(location, format, timeout)
	}
	return Open(location, format)
}

func (r *RemoteSource) Name() string { return r.url }

// Format returns the record encoding
func (r *RemoteSource) Format() Format { return r.format }

func (r *RemoteSource) Each(ctx context.Context, fn func(record interface{}) error) error {
	return r.EachTolerant(ctx, fn, nil)
}

// EachTolerant fetches the dataset, handing undecodable NDJSON lines to onInvalid
func (r *RemoteSource) EachTolerant(ctx context.Context, fn func(record interface{}) error, onInvalid InvalidRecordFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", r.url, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch dataset %s: %w", r.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dataset %s returned status %d", r.url, resp.StatusCode)
	}
	return decodeRecords(ctx, resp.Body, r.url, r.format, fn, onInvalid)
}
