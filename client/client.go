// Package client is a Go SDK for the mediadeck HTTP API. Banner lists are
// served from a persistent BannerCache when one is configured.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"resty.dev/v3"

	"mediadeck/models"
	"mediadeck/services/danmaku"
)

// ClientIDHeader identifies the caller's selection-memory session.
const ClientIDHeader = "X-Client-ID"

// APIError is a non-success answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mediadeck: status %d", e.Status)
	}
	return fmt.Sprintf("mediadeck: status %d: %s", e.Status, e.Message)
}

type Option func(*Client)

// WithBannerCache serves and refreshes banners through cache.
func WithBannerCache(cache *BannerCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithClientID reuses a session id instead of generating a new one.
func WithClientID(id string) Option {
	return func(c *Client) {
		if id = strings.TrimSpace(id); id != "" {
			c.clientID = id
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

type Client struct {
	http     *resty.Client
	cache    *BannerCache
	clientID string
	timeout  time.Duration
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{clientID: uuid.NewString(), timeout: 20 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	c.http = resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(c.timeout).
		SetHeader("Accept", "application/json").
		SetHeader(ClientIDHeader, c.clientID)
	return c
}

func (c *Client) Close() error {
	return c.http.Close()
}

// ClientID is the session id sent with every request.
func (c *Client) ClientID() string {
	return c.clientID
}

// Banners returns the homepage banner list, preferring a fresh cached copy.
func (c *Client) Banners(ctx context.Context) ([]models.BannerItem, error) {
	if items, ok := c.cache.Load(); ok {
		return items, nil
	}
	return c.RefreshBanners(ctx)
}

// RefreshBanners fetches the banner list from the server and writes a
// non-empty successful result through to the cache. Failures yield an empty
// list together with the error.
func (c *Client) RefreshBanners(ctx context.Context) ([]models.BannerItem, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/api/banner/trending")
	if err != nil {
		return []models.BannerItem{}, fmt.Errorf("fetch banners: %w", err)
	}

	var payload models.BannerResponse
	if err := json.Unmarshal(resp.Bytes(), &payload); err != nil {
		return []models.BannerItem{}, &APIError{Status: resp.StatusCode(), Message: "malformed banner response"}
	}
	if payload.Code != http.StatusOK {
		return []models.BannerItem{}, &APIError{Status: payload.Code, Message: payload.Message}
	}
	if payload.List == nil {
		payload.List = []models.BannerItem{}
	}
	c.cache.Save(payload.List)
	return payload.List, nil
}

// ClearServerBannerCache asks the server to drop its cached banner lists.
func (c *Client) ClearServerBannerCache(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/banner/cache/clear", nil, nil)
}

func (c *Client) SearchDanmaku(ctx context.Context, keyword string) ([]models.DanmakuAnime, error) {
	var out struct {
		Animes []models.DanmakuAnime `json:"animes"`
	}
	err := c.do(ctx, http.MethodGet, "/api/danmaku/search", func(r *resty.Request) {
		r.SetQueryParam("keyword", keyword)
	}, &out)
	return out.Animes, err
}

func (c *Client) Episodes(ctx context.Context, animeID int64) ([]models.DanmakuEpisode, error) {
	var out struct {
		Episodes []models.DanmakuEpisode `json:"episodes"`
	}
	err := c.do(ctx, http.MethodGet, "/api/danmaku/anime/{animeId}/episodes", func(r *resty.Request) {
		r.SetPathParam("animeId", strconv.FormatInt(animeID, 10))
	}, &out)
	return out.Episodes, err
}

func (c *Client) Comments(ctx context.Context, episodeID int64) ([]models.DanmakuComment, error) {
	var out models.DanmakuCommentsResponse
	err := c.do(ctx, http.MethodGet, "/api/danmaku/episodes/{episodeId}/comments", func(r *resty.Request) {
		r.SetPathParam("episodeId", strconv.FormatInt(episodeID, 10))
	}, &out)
	return out.Comments, err
}

// Select records a manual danmaku choice for the episode being played.
func (c *Client) Select(ctx context.Context, req danmaku.SelectRequest) (models.DanmakuSelectionResponse, error) {
	var out models.DanmakuSelectionResponse
	err := c.do(ctx, http.MethodPost, "/api/danmaku/selection", func(r *resty.Request) {
		r.SetBody(req)
	}, &out)
	return out, err
}

// AutoSelect lets the server pick a danmaku source for a title's episode.
func (c *Client) AutoSelect(ctx context.Context, title string, episodeIndex int) (models.DanmakuSelection, error) {
	var out models.DanmakuSelectionResponse
	err := c.do(ctx, http.MethodGet, "/api/danmaku/auto", func(r *resty.Request) {
		r.SetQueryParam("title", title)
		r.SetQueryParam("episode", strconv.Itoa(episodeIndex))
	}, &out)
	return out.Selection, err
}

func (c *Client) RememberSource(ctx context.Context, title string, sourceIndex int) (string, error) {
	var out models.MemoryStatusResponse
	err := c.do(ctx, http.MethodPut, "/api/danmaku/memory/source", func(r *resty.Request) {
		r.SetBody(models.SourceMemoryRequest{Title: title, SourceIndex: sourceIndex})
	}, &out)
	return out.Memory, err
}

// Forget clears remembered choices for title, or all of them when title is empty.
func (c *Client) Forget(ctx context.Context, title string) error {
	return c.do(ctx, http.MethodDelete, "/api/danmaku/memory", func(r *resty.Request) {
		if title != "" {
			r.SetQueryParam("title", title)
		}
	}, nil)
}

func (c *Client) MemoryRecords(ctx context.Context) ([]models.SelectionMemoryRecord, error) {
	var out struct {
		Records []models.SelectionMemoryRecord `json:"records"`
	}
	err := c.do(ctx, http.MethodGet, "/api/danmaku/memory", nil, &out)
	return out.Records, err
}

func (c *Client) do(ctx context.Context, method, path string, prepare func(*resty.Request), out any) error {
	req := c.http.R().SetContext(ctx)
	if prepare != nil {
		prepare(req)
	}

	var (
		resp *resty.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = req.Get(path)
	case http.MethodPost:
		resp, err = req.Post(path)
	case http.MethodPut:
		resp, err = req.Put(path)
	case http.MethodDelete:
		resp, err = req.Delete(path)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if status := resp.StatusCode(); status < 200 || status > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Bytes(), &body)
		return &APIError{Status: status, Message: body.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Bytes(), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
