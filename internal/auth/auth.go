// Package auth resolves the calling principal from access tokens issued by
// the external identity provider. The core never issues tokens; it only
// verifies them and hands the resolved principal to the workflow layer.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/markloop/backend/internal/models"
)

// principalKey is the gin context key the middleware stores the principal under.
const principalKey = "principal"

// Claims is the access-token claim set issued by the identity provider.
// It embeds RegisteredClaims for standard fields (sub, exp, iat) and adds
// the project binding.
type Claims struct {
	jwt.RegisteredClaims
	ProjectID string `json:"project_id"`
	Role      string `json:"role"`
}

// Verifier parses and validates access tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for HMAC-signed tokens.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses the token string and returns the principal it carries.
func (v *Verifier) Verify(tokenString string) (*models.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	role := models.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("unrecognized role %q", claims.Role)
	}
	if claims.Subject == "" || claims.ProjectID == "" {
		return nil, errors.New("token missing subject or project binding")
	}

	return &models.Principal{
		UserID:    claims.Subject,
		Role:      role,
		ProjectID: claims.ProjectID,
	}, nil
}

// Middleware resolves the principal from the Authorization header and stores
// it in the request context. Requests without a token proceed anonymously;
// requests with a malformed token are rejected.
func Middleware(verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(401, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "malformed authorization header",
			})
			return
		}

		principal, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(401, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "invalid token",
			})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal resolved by Middleware, or nil for an
// anonymous caller.
func PrincipalFrom(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}
