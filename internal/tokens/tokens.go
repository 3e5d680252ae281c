package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fct/fct/backend/go-services/internal/config"
	"github.com/fct/fct/backend/go-services/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSecret is returned when signing or verifying without SECRET_KEY.
var ErrNoSecret = errors.New("tokens: secret key is not configured")

// ErrNoExpiry rejects tokens without an exp claim.
var ErrNoExpiry = errors.New("tokens: token has no expiry")

// GenerateAccessToken signs subject with the access TTL. The expiry is truncated to
// whole seconds, which is what the exp claim carries.
func GenerateAccessToken(cfg config.AuthConfig, subject map[string]interface{}) (string, time.Time, error) {
	return generate(cfg.SecretKey, subject, cfg.AccessTokenTTL, time.Now())
}

// GenerateRefreshToken is GenerateAccessToken with the refresh TTL.
func GenerateRefreshToken(cfg config.AuthConfig, subject map[string]interface{}) (string, time.Time, error) {
	return generate(cfg.SecretKey, subject, cfg.RefreshTokenTTL, time.Now())
}

func generate(secret string, subject map[string]interface{}, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, ErrNoSecret
	}
	expire := now.UTC().Add(ttl).Truncate(time.Second)
	claims := jwt.MapClaims{}
	for k, v := range subject {
		claims[k] = v
	}
	claims["iat"] = now.Unix()
	claims["exp"] = expire.Unix()
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := jt.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expire, nil
}

// Verifier checks HS256 tokens signed with the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

func (v *Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("tokens: unexpected claims type")
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, ErrNoExpiry
	}
	return claimsToken(claims), nil
}

// claimsToken exposes verified claims through a JSON round trip.
type claimsToken jwt.MapClaims

func (t claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
