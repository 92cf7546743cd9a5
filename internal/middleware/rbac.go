package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edupath/enroll-api/internal/authz"
	"github.com/edupath/enroll-api/internal/models"
	appErrors "github.com/edupath/enroll-api/pkg/errors"
	"github.com/edupath/enroll-api/pkg/response"
)

// RequireKinds restricts a route to the given role kinds. "SELF" additionally
// allows a caller whose account id matches the :id path parameter.
func RequireKinds(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get(ContextRoleKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		role := roleValue.(authz.Role)

		allowSelf := false
		allowedKinds := make(map[authz.Kind]struct{})
		for _, a := range allowed {
			if a == "SELF" {
				allowSelf = true
				continue
			}
			allowedKinds[authz.Kind(a)] = struct{}{}
		}

		if _, ok := allowedKinds[role.Kind]; ok {
			c.Next()
			return
		}

		if allowSelf {
			claimsValue, ok := c.Get(ContextUserKey)
			if ok {
				claims := claimsValue.(*models.JWTClaims)
				if targetID := c.Param("id"); targetID != "" && targetID == claims.AccountID {
					c.Next()
					return
				}
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
