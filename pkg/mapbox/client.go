// Package mapbox fetches satellite tiles from the Mapbox Static Images API.
package mapbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"tilefetch/pkg/config"
	errs "tilefetch/pkg/errors"
	"tilefetch/pkg/logger"
)

const redacted = "REDACTED"

// Doer sends a retryable request. *retryablehttp.Client satisfies it.
type Doer interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

// Options describes the tile every request asks for
type Options struct {
	BaseURL     string
	Style       string
	Zoom        int
	Width       int
	Height      int
	HighDPI     bool
	AccessToken string
}

// OptionsFromConfig copies the tile settings out of the mapbox config section
func OptionsFromConfig(cfg config.MapboxConfig) Options {
	return Options{
		BaseURL:     cfg.BaseURL,
		Style:       cfg.Style,
		Zoom:        cfg.Zoom,
		Width:       cfg.Width,
		Height:      cfg.Height,
		HighDPI:     cfg.HighDPI,
		AccessToken: cfg.AccessToken,
	}
}

// Client requests static tiles centered on a coordinate
type Client struct {
	opts Options
	http Doer
	log  logger.Logger
}

// NewClient creates a tile client. Retries, timeouts and backoff are the
// business of httpClient.
func NewClient(opts Options, httpClient Doer, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		opts: opts,
		http: httpClient,
		log:  log.WithField("component", "mapbox"),
	}
}

// TileURL builds the request URL for a tile centered on (lon, lat).
// Coordinates are written in their shortest exact decimal form.
func (c *Client) TileURL(lon, lat float64) string {
	size := fmt.Sprintf("%dx%d", c.opts.Width, c.opts.Height)
	if c.opts.HighDPI {
		size += "@2x"
	}
	return fmt.Sprintf("%s/styles/v1/%s/static/%s,%s,%d/%s?access_token=%s",
		c.opts.BaseURL,
		c.opts.Style,
		strconv.FormatFloat(lon, 'f', -1, 64),
		strconv.FormatFloat(lat, 'f', -1, 64),
		c.opts.Zoom,
		size,
		url.QueryEscape(c.opts.AccessToken),
	)
}

// Redact removes the access token from s
func (c *Client) Redact(s string) string {
	return RedactToken(s, c.opts.AccessToken)
}

// RedactToken replaces every occurrence of token in s, raw or query escaped
func RedactToken(s, token string) string {
	if token == "" {
		return s
	}
	s = strings.ReplaceAll(s, token, redacted)
	if escaped := url.QueryEscape(token); escaped != token {
		s = strings.ReplaceAll(s, escaped, redacted)
	}
	return s
}

// FetchTile downloads the tile for (lon, lat) and returns the body verbatim.
// A response other than 200 after retries yields an http_status error with
// the last status code; anything that prevents a complete response yields a
// transport error.
func (c *Client) FetchTile(ctx context.Context, lon, lat float64) ([]byte, error) {
	tileURL := c.TileURL(lon, lat)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return nil, errs.Transport(c.scrub(err))
	}

	c.log.DebugWithFields("Requesting tile", map[string]interface{}{
		"url": c.Redact(tileURL),
	})

	resp, err := c.http.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, errs.Transport(c.scrub(err))
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errs.HTTPStatus(resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Transport(fmt.Errorf("failed to read tile body: %w", c.scrub(err)))
	}
	return body, nil
}

// scrub strips the token from errors that embed the request URL while
// keeping the wrapped cause reachable
func (c *Client) scrub(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = c.Redact(uerr.URL)
		return err
	}
	if c.opts.AccessToken != "" && strings.Contains(err.Error(), c.opts.AccessToken) {
		return errors.New(c.Redact(err.Error()))
	}
	return err
}
