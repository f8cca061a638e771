package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

const maxFontBytes = 5 * 1024 * 1024

// fontURL matches the remote font referenced by a drawing's style block.
// The second group is the font file's stem and becomes the font family.
var fontURL = regexp.MustCompile(`https://(www\.)?[a-zA-Z]+.[a-z]+/([a-zA-Z]+).[a-z\d]+`)

// NewFontHTTPClient creates an HTTP client for font downloads.
func NewFontHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

// FontCache downloads fonts once per build and keeps them base64 encoded.
type FontCache struct {
	client *http.Client
	retry  retry.Policy
	group  singleflight.Group

	mu    sync.Mutex
	fonts map[string]string
}

// NewFontCache returns an empty cache. A nil client uses NewFontHTTPClient.
func NewFontCache(client *http.Client) *FontCache {
	if client == nil {
		client = NewFontHTTPClient()
	}
	return &FontCache{client: client, retry: retry.DefaultPolicy(), fonts: make(map[string]string)}
}

// WithRetry replaces the backoff policy used for transient download failures.
func (c *FontCache) WithRetry(p retry.Policy) *FontCache {
	c.retry = p
	return c
}

// Fetch returns the base64 encoding of the font at url.
func (c *FontCache) Fetch(ctx context.Context, url string) (string, error) {
	c.mu.Lock()
	font, ok := c.fonts[url]
	c.mu.Unlock()
	if ok {
		return font, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		var data []byte
		err := c.retry.Do(ctx, func() error {
			var err error
			data, err = c.download(ctx, url)
			return err
		})
		if err != nil {
			return "", err
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		c.mu.Lock()
		c.fonts[url] = encoded
		c.mu.Unlock()
		return encoded, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len reports how many fonts are cached.
func (c *FontCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fonts)
}

func (c *FontCache) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, derrors.FetchFailed(url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, derrors.FetchFailed(url, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, derrors.Wrap(fmt.Errorf("HTTP %d", resp.StatusCode), derrors.CategoryNetwork, derrors.SeverityError, "fetch "+url).
			WithContext("url", url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontBytes+1))
	if err != nil {
		return nil, derrors.FetchFailed(url, err)
	}
	if len(data) > maxFontBytes {
		return nil, derrors.FetchFailed(url, errors.New("response too large"))
	}
	return data, nil
}
