package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンが無効または期限切れであることを示す。
// 署名不一致・期限切れ・形式不正のいずれもこのエラーに集約し、
// 失効理由を呼び出し側へ漏らさない。
var ErrInvalidToken = errors.New("invalid or expired token")

// tokenClaims はアクセストークンのクレームを表す。
// 信頼するのはUserIDと標準の有効期限のみ。
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenService はHS256署名付きアクセストークンの発行と検証を提供する。
// 署名鍵はプロセス起動時に一度だけ設定され、以後変更されない。
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService はTokenServiceを生成する。
// ttlは発行するトークンの有効期間を指定する。
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, ttl: ttl}
}

// Issue はuserIDを埋め込んだ署名付きトークンを発行する。
// 有効期限は現在時刻 + TTLの絶対時刻。
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンを検証し、埋め込まれたユーザーIDを返す。
// 署名不一致・期限切れ・形式不正のいずれの場合もErrInvalidTokenを返す。
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
