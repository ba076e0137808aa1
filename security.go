package wechatmp

import "context"

// 内容安全场景值
const (
	SecSceneProfile   = 1
	SecSceneComment   = 2
	SecSceneForum     = 3
	SecSceneSocialLog = 4
)

// 媒体检测类型
const (
	MediaTypeAudio = 1
	MediaTypeImage = 2
)

// MsgSecCheckDetail 是单条检测策略的结果。
type MsgSecCheckDetail struct {
	Strategy string `json:"strategy"`
	ErrCode  int    `json:"errcode"`
	// Suggest 建议：pass / risky / review
	Suggest string `json:"suggest"`
	// Label 命中标签：100 正常，10001 广告，20001 时政等
	Label   int    `json:"label"`
	Keyword string `json:"keyword"`
	Prob    int    `json:"prob"`
}

// MsgSecCheckResult 是综合检测结论。
type MsgSecCheckResult struct {
	Suggest string `json:"suggest"`
	Label   int    `json:"label"`
}

// MsgSecCheckResponse 是文本内容安全检测结果。
type MsgSecCheckResponse struct {
	Result MsgSecCheckResult   `json:"result"`
	Detail []MsgSecCheckDetail `json:"detail"`
}

// MsgSecCheck 检测文本内容是否违规（接口 2.0 版本）。
func (c *Client) MsgSecCheck(ctx context.Context, openID string, scene int, content string) (*MsgSecCheckResponse, error) {
	var resp MsgSecCheckResponse
	err := c.postJSON(ctx, "/wxa/msg_sec_check", map[string]any{
		"version": 2,
		"openid":  openID,
		"scene":   scene,
		"content": content,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// MediaCheckAsync 异步检测图片/音频是否违规，结果通过消息推送下发。
// 返回用于关联推送结果的 trace_id。
func (c *Client) MediaCheckAsync(ctx context.Context, openID string, scene int, mediaURL string, mediaType int) (string, error) {
	var resp struct {
		TraceID string `json:"trace_id"`
	}
	err := c.postJSON(ctx, "/wxa/media_check_async", map[string]any{
		"media_url":  mediaURL,
		"media_type": mediaType,
		"version":    2,
		"openid":     openID,
		"scene":      scene,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.TraceID, nil
}

// UserRiskRankOptions 是 getuserriskrank 的可选参数。
type UserRiskRankOptions struct {
	ClientIP     string `json:"client_ip,omitempty"`
	MobileNo     string `json:"mobile_no,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	ExtendedInfo string `json:"extended_info,omitempty"`
	IsTest       bool   `json:"is_test,omitempty"`
}

// GetUserRiskRank 获取用户安全等级，0 无风险至 4 高风险。
func (c *Client) GetUserRiskRank(ctx context.Context, openID string, scene int, opts UserRiskRankOptions) (int, error) {
	body := map[string]any{
		"appid":  c.appid,
		"openid": openID,
		"scene":  scene,
	}
	if opts.ClientIP != "" {
		body["client_ip"] = opts.ClientIP
	}
	if opts.MobileNo != "" {
		body["mobile_no"] = opts.MobileNo
	}
	if opts.EmailAddress != "" {
		body["email_address"] = opts.EmailAddress
	}
	if opts.ExtendedInfo != "" {
		body["extended_info"] = opts.ExtendedInfo
	}
	if opts.IsTest {
		body["is_test"] = true
	}

	var resp struct {
		RiskRank int `json:"risk_rank"`
	}
	if err := c.postJSON(ctx, "/wxa/getuserriskrank", body, &resp); err != nil {
		return 0, err
	}
	return resp.RiskRank, nil
}
