// Package session signs and verifies the claims object carried in the
// pico_jwt cookie.
package session

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie.
const CookieName = "pico_jwt"

// Claims is the opaque JSON object inside a session token. A nil
// Claims means no session, which is distinct from an empty object.
type Claims = map[string]any

// Codec signs and verifies session tokens with a single server-wide
// secret using HS256.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Decode scans the cookie header values for pico_jwt cookies and
// returns the claims of the first one that verifies. Malformed or
// unverifiable tokens are skipped; none valid means nil, not an error.
func (c *Codec) Decode(headers map[string][]string) Claims {
	for _, header := range headers["cookie"] {
		for _, cookie := range strings.Split(header, ";") {
			cookie = strings.TrimSpace(cookie)

			value, ok := strings.CutPrefix(cookie, CookieName+"=")
			if !ok {
				continue
			}

			token, err := jwt.Parse(value, c.keyFunc)
			if err != nil || !token.Valid {
				continue
			}
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				return Claims(claims)
			}
		}
	}
	return nil
}

// Encode signs claims into a Set-Cookie header value with HttpOnly and
// root Path flags.
func (c *Codec) Encode(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return CookieName + "=" + signed + "; HttpOnly; Path=/", nil
}

func (c *Codec) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return c.secret, nil
}
