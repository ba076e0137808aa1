package wechatmp

import (
	"context"
	"encoding/json"
	"net/http"
)

// DateRange 是数据分析接口的统计时间段，格式 yyyymmdd。
// 日维度接口要求 begin 与 end 为同一天，周/月维度分别对应自然周/月。
type DateRange struct {
	BeginDate string `json:"begin_date"`
	EndDate   string `json:"end_date"`
}

// AnalyticsResult 是数据分析接口的响应。各接口的列表字段名不同
// （list / visit_uv 等），保留原始 JSON 由调用方解码。
type AnalyticsResult struct {
	Raw json.RawMessage
}

// Decode unmarshals the analytics payload into v.
func (r *AnalyticsResult) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

func (c *Client) postDatacube(ctx context.Context, path string, dr DateRange) (*AnalyticsResult, error) {
	raw, err := c.invoke(ctx, apiRequest{
		method:    http.MethodPost,
		path:      path,
		body:      dr,
		needToken: true,
	})
	if err != nil {
		return nil, err
	}
	return &AnalyticsResult{Raw: append(json.RawMessage(nil), raw...)}, nil
}

// GetDailySummary 获取日概况（访问量、转发量等）。
func (c *Client) GetDailySummary(ctx context.Context, dr DateRange) (*AnalyticsResult, error) {
	return c.postDatacube(ctx, "/datacube/getweanalysisappiddailysummarytrend", dr)
}

// GetDailyVisitTrend 获取日访问趋势。
func (c *Client) GetDailyVisitTrend(ctx context.Context, dr DateRange) (*AnalyticsResult, error) {
	return c.postDatacube(ctx, "/datacube/getweanalysisappiddailyvisittrend", dr)
}

// GetWeeklyVisitTrend 获取周访问趋势。
func (c *Client) GetWeeklyVisitTrend(ctx context.Context, dr DateRange) (*AnalyticsResult, error) {
	return c.postDatacube(ctx, "/datacube/getweanalysisappidweeklyvisittrend", dr)
}

// GetMonthlyVisitTrend 获取月访问趋势。
func (c *Client) GetMonthlyVisitTrend(ctx context.Context, dr DateRange) (*AnalyticsResult, error) {
	return c.postDatacube(ctx, "/datacube/getweanalysisappidmonthlyvisittrend", dr)
}

// GetVisitDistribution 获取访问分布（来源、时长、深度）。
func (c *Client) GetVisitDistribution(ctx context.Context, dr DateRange) (*AnalyticsResult, error) {
	return c.postDatacube(ctx, "/datacube/getweanalysisappidvisitdistribution", dr)
}

// GetUserPortrait 获取用户画像（地域、性别、年龄、终端分布）。
func (c *Client) GetUserPortrait(ctx context.Context, dr DateRange) (*AnalyticsResult, error) {
	return c.postDatacube(ctx, "/datacube/getweanalysisappiduserportrait", dr)
}
