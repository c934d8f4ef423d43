// Package jwt 提供员工与宾客的 JWT 令牌签发和校验
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
)

// 用户类型
const (
	UserTypeStaff = "staff"
	UserTypeGuest = "guest"
)

// 令牌类型
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims 自定义 JWT 声明
type Claims struct {
	UserID    int64  `json:"user_id"`
	UserType  string `json:"user_type"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity 令牌主体
type Identity struct {
	UserID   int64
	UserType string
	Username string
	Role     string
}

// Config JWT 配置
type Config struct {
	Secret            string
	AccessExpireTime  time.Duration
	RefreshExpireTime time.Duration
	Issuer            string
}

// FromAppConfig 由应用配置构建
func FromAppConfig(cfg *config.JWTConfig) *Config {
	return &Config{
		Secret:            cfg.Secret,
		AccessExpireTime:  cfg.AccessTokenDuration(),
		RefreshExpireTime: cfg.RefreshTokenDuration(),
		Issuer:            cfg.Issuer,
	}
}

// TokenPair 令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// 预定义错误
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenType      = errors.New("unexpected token type")
)

// Manager JWT 管理器
type Manager struct {
	config *Config
	now    func() time.Time
}

// NewManager 创建 JWT 管理器
func NewManager(config *Config) *Manager {
	return &Manager{config: config, now: time.Now}
}

// GenerateTokenPair 生成访问令牌和刷新令牌
func (m *Manager) GenerateTokenPair(id Identity) (*TokenPair, error) {
	now := m.now()
	accessExpireAt := now.Add(m.config.AccessExpireTime)

	accessToken, err := m.sign(id, TokenTypeAccess, now, accessExpireAt)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.sign(id, TokenTypeRefresh, now, now.Add(m.config.RefreshExpireTime))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpireAt.Unix(),
	}, nil
}

func (m *Manager) sign(id Identity, tokenType string, issuedAt, expireAt time.Time) (string, error) {
	claims := &Claims{
		UserID:    id.UserID,
		UserType:  id.UserType,
		Username:  id.Username,
		Role:      id.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   id.UserType,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expireAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.Secret))
}

// ParseToken 解析访问令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenTypeAccess)
}

func (m *Manager) parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != tokenType {
		return nil, ErrTokenType
	}
	return claims, nil
}

// RefreshToken 用刷新令牌换取新的令牌对，访问令牌不能用于刷新
func (m *Manager) RefreshToken(refreshToken string) (*TokenPair, error) {
	claims, err := m.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return m.GenerateTokenPair(Identity{
		UserID:   claims.UserID,
		UserType: claims.UserType,
		Username: claims.Username,
		Role:     claims.Role,
	})
}
