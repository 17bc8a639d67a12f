package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/scholarstream/api/internal/app/auth"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/pkg/identity"
	"github.com/scholarstream/api/internal/pkg/logger"
)

// Context keys set by the auth middleware
const (
	ContextKeyPrincipal = "principal"
	ContextKeyEmail     = "email"
	ContextKeyRole      = "role"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	verifier identity.Verifier
	roles    auth.RoleResolver
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier identity.Verifier, roles auth.RoleResolver) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		roles:    roles,
	}
}

func abortUnauthenticated(c *gin.Context, details string) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
	errorDetail = errorDetail.WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

func abortForbidden(c *gin.Context) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied")
	errorDetail = errorDetail.WithDetails("You don't have sufficient permissions for this operation")
	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
}

// authenticate verifies the bearer token once per request. It reports false
// after aborting the request with 401.
func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	if _, ok := GetPrincipal(c); ok {
		return true
	}

	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		abortUnauthenticated(c, "Authorization header missing")
		return false
	}
	token, err := identity.ExtractBearerToken(authHeader)
	if err != nil {
		abortUnauthenticated(c, "Invalid token format")
		return false
	}

	principal, err := m.verifier.VerifyIDToken(c.Request.Context(), token)
	if err != nil {
		abortUnauthenticated(c, "Invalid or expired token")
		return false
	}

	c.Set(ContextKeyPrincipal, principal)
	c.Set(ContextKeyEmail, strings.ToLower(principal.Email))
	return true
}

// Authenticate requires a valid identity token
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireRole authenticates the caller and then checks the stored role.
// A missing or bad token is always reported before a role mismatch.
func (m *AuthMiddleware) RequireRole(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}

		email := c.GetString(ContextKeyEmail)
		role, err := m.roles.ResolveRole(c.Request.Context(), email)
		if err != nil {
			logger.Error().Err(err).Str("email", email).Msg("Role lookup failed, denying request")
			abortForbidden(c)
			return
		}

		for _, r := range allowed {
			if role == r {
				c.Set(ContextKeyRole, role)
				c.Next()
				return
			}
		}
		abortForbidden(c)
	}
}

// RequireAdmin allows Admin only
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(models.RoleAdmin)
}

// RequireModerator allows Moderator and Admin
func (m *AuthMiddleware) RequireModerator() gin.HandlerFunc {
	return m.RequireRole(models.RoleModerator, models.RoleAdmin)
}

// GetPrincipal returns the identity stored by Authenticate
func GetPrincipal(c *gin.Context) (*identity.Principal, bool) {
	v, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return nil, false
	}
	p, ok := v.(*identity.Principal)
	return p, ok && p != nil
}
