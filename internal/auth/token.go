package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Issuer はトークンの iss クレームに入れる値。
const Issuer = "numobf"

var (
	// ErrMissingSecret は署名鍵が空の場合に返す。
	ErrMissingSecret = errors.New("auth: secret must not be empty")

	// ErrInvalidToken はトークンの検証に失敗した場合に返す。
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims は API トークンのクレーム。
type Claims struct {
	jwt.RegisteredClaims
}

// Signer は HS256 でトークンの発行と検証を行う。
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner は secret を鍵とする Signer を生成する。
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Issue は subject 向けに ttl だけ有効なトークンを発行する。ttl が 0 以下の場合は期限を付けない。
func (s *Signer) Issue(subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("issue token: subject must not be blank")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、クレームを返す。
func (s *Signer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != Issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	return claims, nil
}
