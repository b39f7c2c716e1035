package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tripnest/booking-service/internal/booking"
	"github.com/tripnest/booking-service/pkg/jwt"
)

// MemberContextKey is the key used to store the signed-in member in Gin context
const MemberContextKey = "member"

// MemberContext represents the authenticated member and the token to
// forward to the travel API
type MemberContext struct {
	Member booking.Member
	Token  string
}

// OptionalAuthMiddleware identifies signed-in members. Requests without an
// Authorization header continue as guests; a header that is present but
// invalid is rejected so a member never silently books as a guest.
func OptionalAuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		// Check Bearer token format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
			}).Warn("AUTH FAILED: Invalid auth format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			return
		}

		tokenString := strings.TrimSpace(parts[1])

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			entry := logger.WithFields(logrus.Fields{
				"path":  c.Request.URL.Path,
				"ip":    c.ClientIP(),
				"error": err.Error(),
			})
			if errors.Is(err, jwt.ErrTokenExpired) {
				entry.Warn("AUTH FAILED: Token expired")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "token_expired",
					"message": "Your session has expired. Please sign in again.",
					"code":    "TOKEN_EXPIRED",
				})
				return
			}
			entry.Warn("AUTH FAILED: Invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid access token",
				"code":    "INVALID_TOKEN",
			})
			return
		}

		c.Set(MemberContextKey, MemberContext{
			Member: booking.Member{
				ID:        claims.MemberID.String(),
				FirstName: claims.FirstName,
				LastName:  claims.LastName,
				Email:     claims.Email,
				Phone:     claims.Phone,
			},
			Token: tokenString,
		})

		c.Next()
	}
}

// GetMemberContext retrieves the signed-in member from Gin context
func GetMemberContext(c *gin.Context) (MemberContext, bool) {
	value, exists := c.Get(MemberContextKey)
	if !exists {
		return MemberContext{}, false
	}

	memberCtx, ok := value.(MemberContext)
	if !ok {
		return MemberContext{}, false
	}

	return memberCtx, true
}
