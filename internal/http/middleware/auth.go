// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the authentication boundary of the report API. The
// engine does not own accounts; it only needs to know which member is
// calling. Two modes exist:
//
//   - JWT mode (a secret is configured): a bearer token signed with HS256 is
//     required and its `sub` claim is the member id.
//   - Header mode (no secret, development only): the X-User-ID header is
//     trusted as the member id.
//
// In both modes the resolved id is stored under the "userID" Gin context key,
// which the rate limiter, idempotency validator, loggers and handlers read.
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ctxKeyUserID is the Gin context key holding the authenticated member id.
	ctxKeyUserID = "userID"

	// HeaderUserID carries the member id in header mode.
	HeaderUserID = "X-User-ID"

	// HeaderAdminToken carries the shared secret of the admin routes.
	HeaderAdminToken = "X-Admin-Token"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errNoSubject    = errors.New("token has no subject")
)

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// Secret is the HS256 signing key. Empty selects header mode.
	Secret []byte
}

// UserID returns the authenticated member id, or "" when none was resolved.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Authenticate resolves the calling member and aborts with 401 when it
// cannot.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			uid string
			err error
		)
		if len(opts.Secret) > 0 {
			uid, err = subjectFromBearer(c.GetHeader("Authorization"), opts.Secret)
		} else {
			uid = strings.TrimSpace(c.GetHeader(HeaderUserID))
			if uid == "" {
				err = errors.New("missing " + HeaderUserID)
			}
		}
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("authentication failed")
			c.Header("WWW-Authenticate", `Bearer realm="reports"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "authentication required",
			})
			return
		}
		c.Set(ctxKeyUserID, uid)
		c.Next()
	}
}

// subjectFromBearer verifies an "Authorization: Bearer <jwt>" value and
// returns its subject.
func subjectFromBearer(header string, secret []byte) (string, error) {
	raw, found := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	raw = strings.TrimSpace(raw)
	if !found || raw == "" {
		return "", errMissingToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}

// RequireAdminToken guards operator routes with a shared secret sent in
// X-Admin-Token. An empty token rejects every request.
func RequireAdminToken(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HeaderAdminToken))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "admin token required",
			})
			return
		}
		c.Next()
	}
}
