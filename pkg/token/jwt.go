package tokenstore

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the lifetime of access tokens.
const TokenTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token has been revoked")
)

// Claims is the validated identity carried by an access token.
type Claims struct {
	UserID    string
	JTI       string
	ExpiresAt time.Time
}

// Issue signs an HS256 access token for userID.
func Issue(secret, userID string, now time.Time) (string, *Claims, error) {
	c := &Claims{UserID: userID, JTI: uuid.NewString(), ExpiresAt: now.Add(TokenTTL)}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": c.ExpiresAt.Unix(),
		"jti": c.JTI,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, c, nil
}

// Parse validates tokenStr and checks the revocation list.
func Parse(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// only accept HMAC signing
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	jti, _ := mc["jti"].(string)
	if IsRevoked(jti) {
		return nil, ErrRevoked
	}
	c := &Claims{UserID: sub, JTI: jti}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
