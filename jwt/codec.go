package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned by Verify for every failure mode: bad
// signature, malformed input, wrong algorithm, or elapsed expiry. Callers
// never learn which check failed.
var ErrTokenInvalid = errors.New("invalid token")

// Claims is the claim set carried by every token this backend issues.
type Claims struct {
	UID   string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config defines a Codec's signing secret and lifetime.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Codec signs and verifies compact HS256 tokens. Access, refresh, and
// reset tokens each get their own Codec with a disjoint secret, so
// possession of one secret cannot forge another token type.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a Codec. The secret must be at
// least 32 bytes.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("jwt: secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("jwt: TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	return &Codec{config: cfg}, nil
}

// TTL reports the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.config.TTL
}

// Issue signs a token embedding the given identity claims with an
// absolute expiry of now+TTL. Output varies between calls for identical
// input because of the embedded issued-at timestamp.
func (c *Codec) Issue(uid, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:   uid,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.config.Secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Any failure
// maps to ErrTokenInvalid.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
