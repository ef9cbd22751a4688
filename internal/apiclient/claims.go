package apiclient

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken means the token is not a JWT; it is still usable as a bearer token.
var ErrOpaqueToken = errors.New("apiclient: token is not a jwt")

// Claims is what the client can learn about its own token. The signature is
// not verified; the backend remains the authority.
type Claims struct {
	Subject   string
	UserID    string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp in the past.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now)
}

// ParseClaims decodes a JWT without verifying it.
func ParseClaims(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "apiclient: parse token"), ErrOpaqueToken)
	}

	out := &Claims{}
	if sub, err := mc.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if role, ok := mc["role"].(string); ok {
		out.Role = role
	}
	switch v := mc["user_id"].(type) {
	case float64:
		out.UserID = strconv.FormatInt(int64(v), 10)
	case string:
		out.UserID = v
	}
	if out.UserID == "" {
		out.UserID = out.Subject
	}
	return out, nil
}
