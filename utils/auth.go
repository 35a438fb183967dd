package utils

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// 管理接口能力
const (
	CapabilityLeadsRead  = "leads:read"
	CapabilityLeadsWrite = "leads:write"
)

// AdminCapabilities 管理员令牌携带的全部能力
var AdminCapabilities = []string{CapabilityLeadsRead, CapabilityLeadsWrite}

var ErrInvalidToken = errors.New("invalid token")

// Claims 令牌负载
type Claims struct {
	Capabilities []string `json:"caps"`
	jwt.StandardClaims
}

// Has 是否具备某项能力
func (c *Claims) Has(capability string) bool {
	for _, cap := range c.Capabilities {
		if cap == capability {
			return true
		}
	}
	return false
}

// TokenIssuer 签发与校验服务端令牌
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken 生成JWT令牌
func (i *TokenIssuer) GenerateToken(subject string, capabilities []string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Capabilities: capabilities,
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		Logger.Error().Err(err).Msg("生成token失败")
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken 解析和验证JWT令牌
func (i *TokenIssuer) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CheckAPIKey 常量时间比较；未配置密钥时总是拒绝
func CheckAPIKey(provided, expected string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
