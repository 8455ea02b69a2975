// Package catalog resolves title IDs to display metadata via the storefront
// appdetails API. Lookups are best effort: any failure, timeout or malformed
// payload falls back to a synthesized name so callers never block on or
// propagate catalog trouble.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

type TitleDetails struct {
	TitleID  uint32 `json:"titleId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Client struct {
	baseURL string
	http    *retryablehttp.Client
	timeout time.Duration
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	return &Client{baseURL: baseURL, http: rc, timeout: timeout}
}

// ResolveTitle never returns an error. On any failure the result carries a
// synthesized name and no image.
func (c *Client) ResolveTitle(ctx context.Context, titleID uint32) TitleDetails {
	fallback := TitleDetails{TitleID: titleID, Name: fmt.Sprintf("Title %d", titleID)}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/appdetails?appids=%d", c.baseURL, titleID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fallback
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Uint32("title_id", titleID).Msg("catalog lookup failed")
		metricCatalogFallbackTotal.Add(1)
		return fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metricCatalogFallbackTotal.Add(1)
		return fallback
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metricCatalogFallbackTotal.Add(1)
		return fallback
	}

	// Response shape: {"<id>": {"success": bool, "data": {...}}}
	var envelope map[string]struct {
		Success bool `json:"success"`
		Data    struct {
			Name        string `json:"name"`
			HeaderImage string `json:"header_image"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		metricCatalogFallbackTotal.Add(1)
		return fallback
	}
	entry, ok := envelope[strconv.FormatUint(uint64(titleID), 10)]
	if !ok || !entry.Success || entry.Data.Name == "" {
		metricCatalogFallbackTotal.Add(1)
		return fallback
	}
	metricCatalogHitTotal.Add(1)
	return TitleDetails{TitleID: titleID, Name: entry.Data.Name, ImageURL: entry.Data.HeaderImage}
}
