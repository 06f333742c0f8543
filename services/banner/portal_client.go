package banner

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"mediadeck/internal/upstream"
)

const (
	portalEndpoint = "https://pbaccess.video.qq.com/trpc.vector_layout.page_view.PageService/getPage"
	portalAppID    = "3000010"
	portalChannel  = "100113"
	portalPageType = "channel"
	portalPageID   = "channel_list_second_page"
	portalReferer  = "https://v.qq.com/"
)

type portalRequest struct {
	PageParams  portalPageParams  `json:"page_params"`
	PageContext map[string]string `json:"page_context"`
	HasCache    int               `json:"has_cache"`
	AdReqInfo   portalAdReqInfo   `json:"ad_req_info"`
}

type portalPageParams struct {
	ChannelID string `json:"channel_id"`
	PageType  string `json:"page_type"`
	PageID    string `json:"page_id"`
	NewMark   string `json:"new_mark_label_enabled"`
}

type portalAdReqInfo struct {
	AdScene     int    `json:"ad_scene"`
	AdRequestID string `json:"ad_request_id"`
	AdCount     int    `json:"ad_count"`
}

// PortalClient posts the page-service request for the video portal's home
// channel and returns the raw response body.
type PortalClient struct {
	http     *resty.Client
	endpoint string
}

// NewPortalClient creates a client with the upstream timeout applied.
func NewPortalClient() *PortalClient {
	client := resty.New()
	client.SetTimeout(upstream.DefaultTimeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Referer", portalReferer)
	client.SetHeader("Origin", "https://v.qq.com")
	return &PortalClient{http: client, endpoint: portalEndpoint}
}

// Close releases idle connections.
func (c *PortalClient) Close() error {
	return c.http.Close()
}

// ShelfRaw fetches the home channel page layout.
func (c *PortalClient) ShelfRaw(ctx context.Context) ([]byte, error) {
	body := portalRequest{
		PageParams: portalPageParams{
			ChannelID: portalChannel,
			PageType:  portalPageType,
			PageID:    portalPageID,
			NewMark:   "1",
		},
		PageContext: map[string]string{},
		HasCache:    1,
		AdReqInfo: portalAdReqInfo{
			AdScene:     1,
			AdRequestID: "",
			AdCount:     0,
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("video_appid", portalAppID).
		SetQueryParam("vversion_platform", "2").
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("portal shelf: %w", err)
	}
	if err := upstream.Check("portal", resp.StatusCode()); err != nil {
		return nil, err
	}
	return resp.Bytes(), nil
}
