package wechatmp

import (
	"context"
	"fmt"
)

// 客服消息类型
const (
	MsgTypeText            = "text"
	MsgTypeImage           = "image"
	MsgTypeLink            = "link"
	MsgTypeMiniProgramPage = "miniprogrampage"
)

// 客服输入状态指令
const (
	TypingCommandTyping       = "Typing"
	TypingCommandCancelTyping = "CancelTyping"
)

type csTextPayload struct {
	Content string `json:"content"`
}

type csImagePayload struct {
	MediaID string `json:"media_id"`
}

// CSLink 图文链接消息内容。
type CSLink struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ThumbURL    string `json:"thumb_url"`
}

// CSMiniProgramPage 小程序卡片消息内容。
type CSMiniProgramPage struct {
	Title        string `json:"title"`
	PagePath     string `json:"pagepath"`
	ThumbMediaID string `json:"thumb_media_id"`
}

// CSMessage 是一条客服消息。按 MsgType 填充对应内容字段。
type CSMessage struct {
	ToUser          string             `json:"touser"`
	MsgType         string             `json:"msgtype"`
	Text            *csTextPayload     `json:"text,omitempty"`
	Image           *csImagePayload    `json:"image,omitempty"`
	Link            *CSLink            `json:"link,omitempty"`
	MiniProgramPage *CSMiniProgramPage `json:"miniprogrampage,omitempty"`
}

// NewTextMessage 构造文本客服消息。
func NewTextMessage(toUser, content string) CSMessage {
	return CSMessage{
		ToUser:  toUser,
		MsgType: MsgTypeText,
		Text:    &csTextPayload{Content: content},
	}
}

// NewImageMessage 构造图片客服消息，mediaID 为临时素材 id。
func NewImageMessage(toUser, mediaID string) CSMessage {
	return CSMessage{
		ToUser:  toUser,
		MsgType: MsgTypeImage,
		Image:   &csImagePayload{MediaID: mediaID},
	}
}

// NewLinkMessage 构造图文链接客服消息。
func NewLinkMessage(toUser string, link CSLink) CSMessage {
	return CSMessage{ToUser: toUser, MsgType: MsgTypeLink, Link: &link}
}

// NewMiniProgramPageMessage 构造小程序卡片客服消息。
func NewMiniProgramPageMessage(toUser string, page CSMiniProgramPage) CSMessage {
	return CSMessage{ToUser: toUser, MsgType: MsgTypeMiniProgramPage, MiniProgramPage: &page}
}

// SendCustomerServiceMessage 发送客服消息。
// 用户必须在 48 小时内与小程序有过交互，否则返回 45015。
func (c *Client) SendCustomerServiceMessage(ctx context.Context, msg CSMessage) error {
	if msg.ToUser == "" {
		return fmt.Errorf("touser is required")
	}
	if msg.MsgType == "" {
		return fmt.Errorf("msgtype is required")
	}
	return c.postJSON(ctx, "/cgi-bin/message/custom/send", msg, nil)
}

// SetTyping 下发客服输入状态。command 取 TypingCommandTyping 或
// TypingCommandCancelTyping。
func (c *Client) SetTyping(ctx context.Context, toUser, command string) error {
	return c.postJSON(ctx, "/cgi-bin/message/custom/typing", map[string]string{
		"touser":  toUser,
		"command": command,
	}, nil)
}

// SubscribeMessageData 是订阅消息模板参数，键为模板关键词（如 thing1）。
type SubscribeMessageData map[string]SubscribeMessageValue

// SubscribeMessageValue 是单个模板参数取值。
type SubscribeMessageValue struct {
	Value string `json:"value"`
}

// SubscribeMessage 是一条订阅消息。
type SubscribeMessage struct {
	ToUser     string               `json:"touser"`
	TemplateID string               `json:"template_id"`
	Page       string               `json:"page,omitempty"`
	Data       SubscribeMessageData `json:"data"`
	// MiniProgramState 跳转小程序版本：developer / trial / formal
	MiniProgramState string `json:"miniprogram_state,omitempty"`
	// Lang 进入小程序查看的语言类型，默认 zh_CN
	Lang string `json:"lang,omitempty"`
}

// SendSubscribeMessage 发送订阅消息。用户需先在前端完成一次性订阅。
func (c *Client) SendSubscribeMessage(ctx context.Context, msg SubscribeMessage) error {
	if msg.ToUser == "" {
		return fmt.Errorf("touser is required")
	}
	if msg.TemplateID == "" {
		return fmt.Errorf("template_id is required")
	}
	return c.postJSON(ctx, "/cgi-bin/message/subscribe/send", msg, nil)
}
