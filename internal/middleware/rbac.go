package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
)

// RequirePermission lets the request through only when the admin token
// carries the given permission code. It must run after RequireAdminJWT.
func RequirePermission(permission model.Permission) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission lets the request through when the admin token carries
// at least one of the given codes. Read-only views shared by several
// coordinator roles use it, e.g. dispatch progress for senders and viewers.
func RequireAnyPermission(permissions ...model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if claims.TokenType != service.TokenTypeAdmin {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}
		if !grantsAny(claims.Permissions, permissions) {
			response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

func grantsAny(granted []string, wanted []model.Permission) bool {
	for _, w := range wanted {
		for _, g := range granted {
			if g == string(w) {
				return true
			}
		}
	}
	return false
}
