package metadata

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"mediadeck/internal/upstream"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p/"

	// TMDBBackdropSize and TMDBPosterSize are the image widths used for banners.
	TMDBBackdropSize = "w1280"
	TMDBPosterSize   = "w780"

	defaultLanguage = "zh-CN"
	maxTrendingBody = 4 << 20
)

// defaultRegions picks the region used when a bare language code is configured.
var defaultRegions = map[string]string{
	"zh": "CN",
	"en": "US",
	"ja": "JP",
	"ko": "KR",
	"pt": "BR",
}

// TMDBClient fetches trending payloads from the metadata provider.
type TMDBClient struct {
	apiKey   string
	language string
	baseURL  string
	maxBody  int64
	http     *http.Client
}

// NewTMDBClient builds a client. proxyURL may be empty or an http, https or
// socks5 URL through which every request is routed.
func NewTMDBClient(apiKey, language, proxyURL string) (*TMDBClient, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL = strings.TrimSpace(proxyURL); proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse tmdb proxy: %w", err)
		}
		switch parsed.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return nil, fmt.Errorf("unsupported tmdb proxy scheme %q", parsed.Scheme)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}
	return newTMDBClient(apiKey, language, &http.Client{
		Transport: transport,
		Timeout:   upstream.DefaultTimeout,
	}), nil
}

func newTMDBClient(apiKey, language string, httpc *http.Client) *TMDBClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: upstream.DefaultTimeout}
	}
	return &TMDBClient{
		apiKey:   strings.TrimSpace(apiKey),
		language: normalizeLanguage(language),
		baseURL:  tmdbBaseURL,
		maxBody:  maxTrendingBody,
		http:     httpc,
	}
}

// IsConfigured reports whether an API key is present.
func (c *TMDBClient) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

// TrendingRaw returns the undecoded weekly trending list (movies and TV).
func (c *TMDBClient) TrendingRaw(ctx context.Context) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)
	endpoint := c.baseURL + "/trending/all/week?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb trending: %w", err)
	}
	defer resp.Body.Close()

	if err := upstream.Check("tmdb", resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("tmdb trending: read body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		log.Printf("[metadata] tmdb trending response exceeds %d bytes, discarding", c.maxBody)
		return nil, fmt.Errorf("tmdb trending: %w", upstream.ErrBodyTooLarge)
	}
	return body, nil
}

// normalizeLanguage turns user input such as "zh", "en_US" or "pt-br" into
// the xx-YY form TMDB expects.
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(strings.ReplaceAll(lang, "_", "-"))
	if lang == "" {
		return defaultLanguage
	}
	parts := strings.SplitN(lang, "-", 2)
	base := strings.ToLower(parts[0])
	if len(parts) == 2 && parts[1] != "" {
		return base + "-" + strings.ToUpper(parts[1])
	}
	if region, ok := defaultRegions[base]; ok {
		return base + "-" + region
	}
	return base + "-" + strings.ToUpper(base)
}

// ImageURL builds an absolute image URL. Empty paths stay empty and values
// that are already absolute are returned unchanged.
func ImageURL(path, size string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return tmdbImageBaseURL + size + path
}
