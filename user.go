package wechatmp

import (
	"context"
	"net/url"

	"github.com/infinitete/wechat-mp-sdk/wxcrypt"
)

// PhoneInfo 是 getPhoneNumber 返回的手机号信息。
type PhoneInfo struct {
	// PhoneNumber 带区号的手机号，如 +8613800138000
	PhoneNumber string `json:"phoneNumber"`
	// PurePhoneNumber 不带区号的手机号
	PurePhoneNumber string `json:"purePhoneNumber"`
	// CountryCode 区号，如 86
	CountryCode string `json:"countryCode"`

	Watermark wxcrypt.Watermark `json:"watermark"`
}

type phoneNumberResponse struct {
	PhoneInfo PhoneInfo `json:"phone_info"`
}

// GetPhoneNumber 用手机号获取凭证 code 换取用户手机号。
// code 由前端 button open-type="getPhoneNumber" 授权获得，5 分钟内有效。
func (c *Client) GetPhoneNumber(ctx context.Context, code string) (*PhoneInfo, error) {
	var resp phoneNumberResponse
	err := c.postJSON(ctx, "/wxa/business/getuserphonenumber", map[string]string{
		"code": code,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.PhoneInfo, nil
}

// PaidUnionIDQuery 指定支付单号来源。TransactionID 与
// MchID+OutTradeNo 二选一。
type PaidUnionIDQuery struct {
	OpenID        string
	TransactionID string
	MchID         string
	OutTradeNo    string
}

type paidUnionIDResponse struct {
	UnionID string `json:"unionid"`
}

// GetPaidUnionID 在用户支付完成后获取其 UnionID，无需用户授权。
func (c *Client) GetPaidUnionID(ctx context.Context, q PaidUnionIDQuery) (string, error) {
	query := url.Values{"openid": {q.OpenID}}
	if q.TransactionID != "" {
		query.Set("transaction_id", q.TransactionID)
	}
	if q.MchID != "" {
		query.Set("mch_id", q.MchID)
	}
	if q.OutTradeNo != "" {
		query.Set("out_trade_no", q.OutTradeNo)
	}

	var resp paidUnionIDResponse
	if err := c.getJSON(ctx, "/wxa/getpaidunionid", query, &resp); err != nil {
		return "", err
	}
	return resp.UnionID, nil
}

// DecryptUserData 用会话密钥解密前端下发的加密数据，并校验水印归属。
func (c *Client) DecryptUserData(sessionKey, encryptedData, iv string) (*wxcrypt.UserData, error) {
	data, err := wxcrypt.DecryptUserData(sessionKey, encryptedData, iv)
	if err != nil {
		return nil, err
	}
	if err := wxcrypt.VerifyWatermark(data, c.appid); err != nil {
		return nil, err
	}
	return data, nil
}
