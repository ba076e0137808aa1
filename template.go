package wechatmp

import (
	"context"
	"net/url"
	"strconv"
)

// TemplateInfo 是已添加到账号下的订阅消息模板。
type TemplateInfo struct {
	PriTmplID string `json:"priTmplId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Example   string `json:"example"`
	// Type 模板类型：2 一次性订阅，3 长期订阅
	Type int `json:"type"`
}

// TemplateCategory 是小程序所属的模板类目。
type TemplateCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type addTemplateResponse struct {
	PriTmplID string `json:"priTmplId"`
}

type templateListResponse struct {
	Data []TemplateInfo `json:"data"`
}

type templateCategoryResponse struct {
	Data []TemplateCategory `json:"data"`
}

// AddTemplate 组合公共模板标题和关键词，添加为账号的个人模板。
// keywordIDs 为所选关键词枚举值，sceneDesc 为服务场景描述。
func (c *Client) AddTemplate(ctx context.Context, tid string, keywordIDs []int, sceneDesc string) (string, error) {
	var resp addTemplateResponse
	err := c.postJSON(ctx, "/wxaapi/newtmpl/addtemplate", map[string]any{
		"tid":       tid,
		"kidList":   keywordIDs,
		"sceneDesc": sceneDesc,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.PriTmplID, nil
}

// GetTemplateList 获取账号下的个人模板列表。
func (c *Client) GetTemplateList(ctx context.Context) ([]TemplateInfo, error) {
	var resp templateListResponse
	if err := c.getJSON(ctx, "/wxaapi/newtmpl/gettemplate", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DeleteTemplate 删除账号下的个人模板。
func (c *Client) DeleteTemplate(ctx context.Context, priTmplID string) error {
	return c.postJSON(ctx, "/wxaapi/newtmpl/deltemplate", map[string]string{
		"priTmplId": priTmplID,
	}, nil)
}

// GetTemplateCategory 获取小程序账号的模板类目。
func (c *Client) GetTemplateCategory(ctx context.Context) ([]TemplateCategory, error) {
	var resp templateCategoryResponse
	if err := c.getJSON(ctx, "/wxaapi/newtmpl/getcategory", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetPubTemplateKeywords 获取公共模板下的关键词列表。
func (c *Client) GetPubTemplateKeywords(ctx context.Context, tid string) ([]TemplateKeyword, error) {
	var resp struct {
		Data []TemplateKeyword `json:"data"`
	}
	err := c.getJSON(ctx, "/wxaapi/newtmpl/getpubtemplatekeywords", url.Values{
		"tid": {tid},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// TemplateKeyword 是公共模板的可选关键词。
type TemplateKeyword struct {
	KID     int    `json:"kid"`
	Name    string `json:"name"`
	Example string `json:"example"`
	Rule    string `json:"rule"`
}

// GetPubTemplateTitles 分页获取类目下的公共模板标题。
// ids 为类目 id 列表，start 从 0 开始，limit 最大 30。
func (c *Client) GetPubTemplateTitles(ctx context.Context, ids string, start, limit int) ([]TemplateTitle, int, error) {
	var resp struct {
		Count int             `json:"count"`
		Data  []TemplateTitle `json:"data"`
	}
	err := c.getJSON(ctx, "/wxaapi/newtmpl/getpubtemplatetitles", url.Values{
		"ids":   {ids},
		"start": {strconv.Itoa(start)},
		"limit": {strconv.Itoa(limit)},
	}, &resp)
	if err != nil {
		return nil, 0, err
	}
	return resp.Data, resp.Count, nil
}

// TemplateTitle 是类目下的公共模板标题。
type TemplateTitle struct {
	TID        int    `json:"tid"`
	Title      string `json:"title"`
	Type       int    `json:"type"`
	CategoryID string `json:"categoryId"`
}
