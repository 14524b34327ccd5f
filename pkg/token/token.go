package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MinSecretLength 是签名密钥的最小字节数
const MinSecretLength = 32

var (
	ErrInvalidToken = errors.New("无效的会话令牌")
	ErrExpiredToken = errors.New("会话令牌已过期")
	ErrWeakSecret   = fmt.Errorf("签名密钥至少需要 %d 字节", MinSecretLength)
)

var (
	keyMu sync.RWMutex
	// secretKey 用于签名会话令牌，在启动时设置一次
	secretKey []byte
	// nowFunc 便于测试替换时钟
	nowFunc = time.Now
)

// SessionPayload 定义了需要被签名的会话数据。
type SessionPayload struct {
	UserID    string `json:"u"`
	ExpiresAt int64  `json:"e"`
}

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
func GenerateSecretKey() error {
	key := make([]byte, MinSecretLength)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("无法生成安全的密钥: %w", err)
	}
	keyMu.Lock()
	secretKey = key
	keyMu.Unlock()
	return nil
}

// SetSecretKey 使用配置提供的密钥
func SetSecretKey(key []byte) error {
	if len(key) < MinSecretLength {
		return ErrWeakSecret
	}
	keyMu.Lock()
	secretKey = append([]byte(nil), key...)
	keyMu.Unlock()
	return nil
}

func sign(data []byte) []byte {
	keyMu.RLock()
	defer keyMu.RUnlock()
	mac := hmac.New(sha256.New, secretKey)
	mac.Write(data)
	return mac.Sum(nil)
}

// IssueSessionToken 为用户签发会话令牌。
// 格式: base64(payload JSON) + "." + base64(HMAC-SHA256签名)
func IssueSessionToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("用户ID不能为空")
	}
	payload := SessionPayload{
		UserID:    userID,
		ExpiresAt: nowFunc().Add(ttl).Unix(),
	}

	// 1. 将payload序列化为JSON字符串
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", errors.New("无法序列化会话payload")
	}

	// 2. 使用HMAC-SHA256和密钥对payload进行签名，并进行Base64编码
	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	encodedSignature := base64.RawURLEncoding.EncodeToString(sign(payloadBytes))
	return encodedPayload + "." + encodedSignature, nil
}

// ValidateSessionToken 验证令牌的签名与有效期，返回其中的会话数据。
func ValidateSessionToken(token string) (SessionPayload, error) {
	encodedPayload, encodedSignature, ok := strings.Cut(token, ".")
	if !ok {
		return SessionPayload{}, ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return SessionPayload{}, ErrInvalidToken
	}
	actualSignature, err := base64.RawURLEncoding.DecodeString(encodedSignature)
	if err != nil {
		return SessionPayload{}, ErrInvalidToken
	}

	// 使用 hmac.Equal 进行时间恒定的比较，防止时序攻击
	if !hmac.Equal(sign(payloadBytes), actualSignature) {
		return SessionPayload{}, ErrInvalidToken
	}

	var payload SessionPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil || payload.UserID == "" {
		return SessionPayload{}, ErrInvalidToken
	}
	if nowFunc().Unix() >= payload.ExpiresAt {
		return SessionPayload{}, ErrExpiredToken
	}
	return payload, nil
}
