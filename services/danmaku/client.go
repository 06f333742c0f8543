package danmaku

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"resty.dev/v3"

	"mediadeck/internal/upstream"
	"mediadeck/models"
)

//go:generate mockgen -destination=../../internal/mocks/danmaku/mock_danmaku.go -package=mock_danmaku mediadeck/services/danmaku API

// API is the danmaku provider as seen by the search/selection service.
type API interface {
	SearchAnime(ctx context.Context, keyword string) ([]models.DanmakuAnime, error)
	Episodes(ctx context.Context, animeID int64) ([]models.DanmakuEpisode, error)
	Comments(ctx context.Context, episodeID int64) ([]models.DanmakuComment, error)
}

// APIError is a failure reported inside a 2xx provider response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("danmaku api error %d: %s", e.Code, e.Message)
}

type envelope struct {
	ErrorCode    int    `json:"errorCode"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage"`
}

func (e envelope) err() error {
	if e.Success || e.ErrorCode == 0 {
		return nil
	}
	return &APIError{Code: e.ErrorCode, Message: e.ErrorMessage}
}

type searchResponse struct {
	envelope
	Animes []models.DanmakuAnime `json:"animes"`
}

type bangumiResponse struct {
	envelope
	Bangumi struct {
		AnimeID    int64                   `json:"animeId"`
		AnimeTitle string                  `json:"animeTitle"`
		Episodes   []models.DanmakuEpisode `json:"episodes"`
	} `json:"bangumi"`
}

type commentResponse struct {
	Count    int          `json:"count"`
	Comments []rawComment `json:"comments"`
}

type rawComment struct {
	CID int64  `json:"cid"`
	P   string `json:"p"`
	M   string `json:"m"`
}

// Client talks to a dandanplay-compatible danmaku server.
type Client struct {
	http     *resty.Client
	attempts uint
}

// NewClient creates a client. retryAttempts is the number of extra attempts
// made for transient failures (timeouts, 429 and 5xx).
func NewClient(baseURL, token string, timeout time.Duration, retryAttempts uint) *Client {
	if timeout <= 0 {
		timeout = upstream.DefaultTimeout
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	if token != "" {
		client.SetHeader("Authorization", "Bearer "+token)
	}
	return &Client{http: client, attempts: retryAttempts}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) SearchAnime(ctx context.Context, keyword string) ([]models.DanmakuAnime, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrKeywordRequired
	}
	resp, err := get[searchResponse](ctx, c, "/api/v2/search/anime", func(r *resty.Request) {
		r.SetQueryParam("keyword", keyword)
	})
	if err != nil {
		return nil, err
	}
	if resp.Animes == nil {
		return []models.DanmakuAnime{}, nil
	}
	return resp.Animes, nil
}

func (c *Client) Episodes(ctx context.Context, animeID int64) ([]models.DanmakuEpisode, error) {
	resp, err := get[bangumiResponse](ctx, c, "/api/v2/bangumi/{animeId}", func(r *resty.Request) {
		r.SetPathParam("animeId", strconv.FormatInt(animeID, 10))
	})
	if err != nil {
		return nil, err
	}
	if resp.Bangumi.Episodes == nil {
		return []models.DanmakuEpisode{}, nil
	}
	return resp.Bangumi.Episodes, nil
}

func (c *Client) Comments(ctx context.Context, episodeID int64) ([]models.DanmakuComment, error) {
	resp, err := get[commentResponse](ctx, c, "/api/v2/comment/{episodeId}", func(r *resty.Request) {
		r.SetPathParam("episodeId", strconv.FormatInt(episodeID, 10))
		r.SetQueryParam("withRelated", "true")
		r.SetQueryParam("chConvert", "1")
	})
	if err != nil {
		return nil, err
	}
	comments := make([]models.DanmakuComment, 0, len(resp.Comments))
	for _, raw := range resp.Comments {
		comment, ok := parseComment(raw)
		if !ok {
			continue
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

type apiResult interface {
	searchResponse | bangumiResponse | commentResponse
}

func get[T apiResult](ctx context.Context, c *Client, path string, prepare func(*resty.Request)) (*T, error) {
	return retry.DoWithData(
		func() (*T, error) {
			result := new(T)
			req := c.http.R().SetContext(ctx).SetResult(result)
			prepare(req)
			resp, err := req.Get(path)
			if err != nil {
				return nil, fmt.Errorf("danmaku %s: %w", path, err)
			}
			if err := upstream.Check("danmaku", resp.StatusCode()); err != nil {
				if !isRetryable(err) {
					return nil, retry.Unrecoverable(err)
				}
				return nil, err
			}
			if env, ok := any(result).(interface{ err() error }); ok {
				if err := env.err(); err != nil {
					return nil, retry.Unrecoverable(err)
				}
			}
			return result, nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts+1),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func isRetryable(err error) bool {
	var se *upstream.StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return true
}

// parseComment decodes the "p" attribute: "time,mode,color,user".
func parseComment(raw rawComment) (models.DanmakuComment, bool) {
	parts := strings.Split(raw.P, ",")
	if len(parts) < 3 || strings.TrimSpace(raw.M) == "" {
		return models.DanmakuComment{}, false
	}
	at, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || at < 0 {
		return models.DanmakuComment{}, false
	}
	mode, err := strconv.Atoi(parts[1])
	if err != nil {
		return models.DanmakuComment{}, false
	}
	color, err := strconv.Atoi(parts[2])
	if err != nil {
		return models.DanmakuComment{}, false
	}
	return models.DanmakuComment{
		ID:    raw.CID,
		Time:  at,
		Mode:  mode,
		Color: color,
		Text:  raw.M,
	}, true
}
