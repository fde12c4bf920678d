package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/deingipfel/touren-finder/pkg/config"
	"github.com/deingipfel/touren-finder/pkg/logger"
	"github.com/deingipfel/touren-finder/pkg/models"
	"github.com/deingipfel/touren-finder/pkg/util"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

var (
	// ErrNotFound is returned when WordPress answers 404 for a resource.
	ErrNotFound = errors.New("wordpress: not found")
	// ErrNoMedia is returned for a zero or negative media id; no request is made.
	ErrNoMedia = errors.New("wordpress: no media id")
)

const (
	pagesPath = "/wp-json/wp/v2/pages"
	mediaPath = "/wp-json/wp/v2/media/"

	pageFields = "id,acf,slug,title,featured_media,link"

	// parallel page fetches after the first one
	maxPageWorkers = 4
)

// Client reads tours and media from the WordPress REST API
type Client interface {
	ListTours(ctx context.Context) ([]models.Tour, error)
	GetMedia(ctx context.Context, id int) (models.Media, error)
}

type client struct {
	http     *resty.Client
	rl       ratelimit.Limiter
	parentID int
	perPage  int
}

type rendered struct {
	Rendered string `json:"rendered"`
}

type wpPage struct {
	ID            int               `json:"id"`
	Slug          string            `json:"slug"`
	Link          string            `json:"link"`
	Title         rendered          `json:"title"`
	FeaturedMedia int               `json:"featured_media"`
	ACF           models.Attributes `json:"acf"`
}

type wpMedia struct {
	ID           int    `json:"id"`
	SourceURL    string `json:"source_url"`
	MediaDetails struct {
		Width  int                         `json:"width"`
		Height int                         `json:"height"`
		Sizes  map[string]models.MediaSize `json:"sizes"`
	} `json:"media_details"`
}

// NewClient builds a client for the configured WordPress site.
func NewClient(cfg config.WordPressConfig) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "touren-finder/1.0")

	rl := ratelimit.NewUnlimited()
	if cfg.RequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.RequestsPerSecond)
	}

	perPage := cfg.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}

	return &client{
		http:     httpClient,
		rl:       rl,
		parentID: cfg.ParentID,
		perPage:  perPage,
	}
}

// ListTours returns every child page of the tour parent, reading all result pages.
func (c *client) ListTours(ctx context.Context) ([]models.Tour, error) {
	first, totalPages, err := c.fetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first tour page: %w", err)
	}

	pages := make([][]wpPage, totalPages)
	pages[0] = first

	if totalPages > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxPageWorkers)
		for p := 2; p <= totalPages; p++ {
			p := p
			g.Go(func() error {
				items, _, err := c.fetchPage(gctx, p)
				if err != nil {
					return fmt.Errorf("failed to fetch tour page %d: %w", p, err)
				}
				pages[p-1] = items
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var tours []models.Tour
	for _, items := range pages {
		for _, item := range items {
			tours = append(tours, item.toTour())
		}
	}

	logger.Info("WordPress: fetched %d tours in %d page(s)", len(tours), totalPages)
	return tours, nil
}

func (c *client) fetchPage(ctx context.Context, page int) ([]wpPage, int, error) {
	body, header, err := c.get(ctx, pagesPath, map[string]string{
		"parent":   strconv.Itoa(c.parentID),
		"per_page": strconv.Itoa(c.perPage),
		"page":     strconv.Itoa(page),
		"_fields":  pageFields,
	})
	if err != nil {
		return nil, 0, err
	}

	var items []wpPage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode pages: %w", err)
	}

	totalPages := 1
	if v := header.Get("X-WP-TotalPages"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			totalPages = n
		}
	}

	logger.Debug("WordPress: page %d/%d with %d items", page, totalPages, len(items))
	return items, totalPages, nil
}

// GetMedia returns the media record with the given id.
func (c *client) GetMedia(ctx context.Context, id int) (models.Media, error) {
	if id <= 0 {
		return models.Media{}, ErrNoMedia
	}

	body, _, err := c.get(ctx, mediaPath+strconv.Itoa(id), nil)
	if err != nil {
		return models.Media{}, fmt.Errorf("failed to fetch media %d: %w", id, err)
	}

	var m wpMedia
	if err := json.Unmarshal(body, &m); err != nil {
		return models.Media{}, fmt.Errorf("failed to decode media %d: %w", id, err)
	}
	return m.toMedia(), nil
}

func (c *client) get(ctx context.Context, path string, query map[string]string) ([]byte, http.Header, error) {
	c.rl.Take()

	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, nil, fmt.Errorf("request %s failed: %w", path, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, nil, fmt.Errorf("HTTP error: %s", resp.Status())
	}

	return []byte(resp.String()), resp.Header(), nil
}

func (p wpPage) toTour() models.Tour {
	return models.Tour{
		ID:            p.ID,
		Slug:          p.Slug,
		Link:          p.Link,
		Title:         PlainText(p.Title.Rendered),
		FeaturedMedia: p.FeaturedMedia,
		Attributes:    p.ACF,
	}
}

func (m wpMedia) toMedia() models.Media {
	sizes := make(map[string]models.MediaSize, len(m.MediaDetails.Sizes)+1)
	for name, s := range m.MediaDetails.Sizes {
		sizes[name] = s
	}
	// Small uploads have no generated "full" entry.
	if _, ok := sizes["full"]; !ok && m.SourceURL != "" {
		sizes["full"] = models.MediaSize{
			SourceURL: m.SourceURL,
			Width:     m.MediaDetails.Width,
			Height:    m.MediaDetails.Height,
		}
	}
	return models.Media{ID: m.ID, Sizes: sizes}
}

// PlainText turns a rendered WordPress field into display text.
func PlainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return util.CollapseSpaces(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("Failed to parse rendered text %q: %v", html, err)
		return util.CollapseSpaces(html)
	}
	return util.CollapseSpaces(doc.Text())
}
