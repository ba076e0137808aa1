package wechatmp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// MediaInfo 是上传临时素材的结果。
type MediaInfo struct {
	// Type 素材类型，目前仅支持 image
	Type string `json:"type"`
	// MediaID 素材标识，3 天内有效
	MediaID string `json:"media_id"`
	// CreatedAt 上传时间戳
	CreatedAt int64 `json:"created_at"`
}

// UploadTempMedia 上传临时素材（客服消息用图片），有效期 3 天。
func (c *Client) UploadTempMedia(ctx context.Context, mediaType, filename string, data []byte) (*MediaInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("media data is empty")
	}
	if mediaType == "" {
		mediaType = "image"
	}

	raw, err := c.invoke(ctx, apiRequest{
		method:    http.MethodPost,
		path:      "/cgi-bin/media/upload",
		query:     url.Values{"type": {mediaType}},
		needToken: true,
		fileField: "media",
		fileName:  filename,
		fileData:  data,
	})
	if err != nil {
		return nil, err
	}

	var info MediaInfo
	if err := decodeJSON(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetTempMedia 下载临时素材，返回原始字节。
func (c *Client) GetTempMedia(ctx context.Context, mediaID string) ([]byte, error) {
	if mediaID == "" {
		return nil, fmt.Errorf("media_id is required")
	}
	return c.getBinary(ctx, "/cgi-bin/media/get", url.Values{
		"media_id": {mediaID},
	})
}
