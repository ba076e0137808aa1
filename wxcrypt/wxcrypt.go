// Package wxcrypt 解密小程序下发的加密用户数据。
//
// 微信用 AES-128-CBC 加密敏感用户数据：
//   - Key: session_key（base64 解码后 16 字节）
//   - IV:  客户端随数据下发（base64 解码后 16 字节）
//   - 填充: PKCS#7
//
// 解密结果为 JSON，携带 watermark（appid + 时间戳）供校验。
package wxcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/infinitete/wechat-mp-sdk/wxerror"
)

// Watermark 标识数据归属的 appid 和加密时间。
type Watermark struct {
	Timestamp int64  `json:"timestamp"`
	AppID     string `json:"appid"`
}

// UserData 是解密后的用户数据。具体业务字段随场景变化，
// 保留原始 JSON 供调用方按需解析。
type UserData struct {
	Raw       json.RawMessage
	Watermark Watermark
}

// Decode unmarshals the decrypted payload into v.
func (d *UserData) Decode(v any) error {
	return json.Unmarshal(d.Raw, v)
}

// DecryptUserData 解密 wx.getUserInfo / getPhoneNumber 等接口下发的加密数据。
// 三个入参均为 base64 编码。
func DecryptUserData(sessionKey, encryptedData, iv string) (*UserData, error) {
	key, err := base64.StdEncoding.DecodeString(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session_key: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted_data: %w", err)
	}
	ivBytes, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return nil, fmt.Errorf("invalid iv: %w", err)
	}

	if len(key) != aes.BlockSize {
		return nil, fmt.Errorf("invalid key length: expected %d, got %d", aes.BlockSize, len(key))
	}
	if len(ivBytes) != aes.BlockSize {
		return nil, fmt.Errorf("invalid iv length: expected %d, got %d", aes.BlockSize, len(ivBytes))
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("invalid ciphertext length: %d", len(data))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, ivBytes).CryptBlocks(plain, data)

	plain, err = stripPKCS7(plain)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Watermark Watermark `json:"watermark"`
	}
	if err := json.Unmarshal(plain, &envelope); err != nil {
		return nil, fmt.Errorf("decrypted payload is not valid JSON: %w", err)
	}

	return &UserData{Raw: append(json.RawMessage(nil), plain...), Watermark: envelope.Watermark}, nil
}

// VerifyWatermark 校验解密数据的水印归属于预期 appid。
func VerifyWatermark(data *UserData, expectedAppID string) error {
	if data.Watermark.AppID != expectedAppID {
		return fmt.Errorf("watermark appid mismatch: expected %s, got %s",
			expectedAppID, data.Watermark.AppID)
	}
	return nil
}

// VerifySignature 校验 rawData 的签名：signature == sha1(rawData + sessionKey)。
// sessionKey 为 base64 原文（与签名计算保持一致，不做解码）。
func VerifySignature(rawData, sessionKey, signature string) error {
	sum := sha1.Sum([]byte(rawData + sessionKey))
	if hex.EncodeToString(sum[:]) != signature {
		return &wxerror.DecodeError{Err: fmt.Errorf("signature mismatch")}
	}
	return nil
}

// stripPKCS7 去除 PKCS#7 填充。
func stripPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return nil, fmt.Errorf("invalid pkcs7 padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("invalid pkcs7 padding")
		}
	}
	return data[:len(data)-pad], nil
}
