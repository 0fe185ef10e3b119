package utils // package utils provides helpers for session tokens and password checks

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/model"
)

// SessionToken is a signed session value along with its expiry. The Token
// field is what the session cookie stores.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// sessionClaims is the JWT payload of a session cookie.
type sessionClaims struct {
	Role int `json:"role"`
	jwt.RegisteredClaims
}

// ErrInvalidSession is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidSession = errors.New("invalid session")

// NewSessionToken builds and signs an HS256 JWT for id. The subject is
// the user id and the role claim the numeric role.
func NewSessionToken(secret string, id auth.Identity, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	jti, err := randomHex(16)
	if err != nil {
		return SessionToken{}, err
	}
	claims := sessionClaims{
		Role: int(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns the identity it carries.
func ParseSessionToken(secret, raw string) (auth.Identity, error) {
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return auth.Anonymous, ErrInvalidSession
	}
	role := model.Role(claims.Role)
	if claims.Subject == "" || (role != model.RoleAdmin && role != model.RoleApplicant) {
		return auth.Anonymous, ErrInvalidSession
	}
	return auth.Identity{UserID: claims.Subject, Role: role}, nil
}

// randomHex returns n random bytes hex-encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
