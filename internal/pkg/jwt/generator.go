// internal/pkg/jwt/generator.go
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type Generator struct {
	secret []byte
	issuer string
	Ttl    time.Duration
	now    func() time.Time
}

func NewGenerator(secret []byte, issuer string, ttl time.Duration) *Generator {
	return &Generator{
		secret: secret,
		issuer: issuer,
		Ttl:    ttl,
		now:    time.Now,
	}
}

// Generate signs a token for the subject and returns it with its jti.
func (g *Generator) Generate(sub Subject) (string, string, error) {
	if len(g.secret) == 0 {
		return "", "", errors.New("jwt generator has no secret")
	}

	now := g.now()
	jti := ulid.Make().String()

	claims := &Claims{
		UserID:    sub.UserID,
		Email:     sub.Email,
		UserType:  sub.UserType,
		Role:      sub.Role,
		SessionID: sub.SessionID,
		StoreName: sub.StoreName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   sub.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(g.Ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(g.secret)
	return signed, jti, err
}
