// Package httpx is the HTTP fetch collaborator consumed by the sync pipeline
// and the container bridge. Responses are surfaced as (status, body) with no
// internal retry policy; callers decide what a failure means.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ProgressFunc receives byte-level download progress. total is -1 when the
// server does not announce a content length.
type ProgressFunc func(total, done int64)

// Getter fetches remote feeds and files.
type Getter interface {
	// Get fetches url and returns the response status and body.
	Get(ctx context.Context, url string) (int, []byte, error)

	// Download streams url to the file at dest, reporting progress when a
	// callback is given. The returned status is the HTTP status code; the
	// caller owns cleanup of dest on non-success.
	Download(ctx context.Context, url, dest string, progress ProgressFunc) (int, error)
}

// Client is the default Getter over net/http.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 5 * time.Minute}}
}

func (c *Client) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) Download(ctx context.Context, url, dest string, progress ProgressFunc) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	out, err := os.Create(dest)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	var reader io.Reader = resp.Body
	if progress != nil {
		reader = &progressReader{r: resp.Body, total: resp.ContentLength, progress: progress}
	}
	if _, err := io.Copy(out, reader); err != nil {
		return resp.StatusCode, fmt.Errorf("writing %s: %w", dest, err)
	}
	return resp.StatusCode, nil
}

type progressReader struct {
	r        io.Reader
	total    int64
	done     int64
	progress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.done += int64(n)
		p.progress(p.total, p.done)
	}
	return n, err
}
