package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requireSubscription gates generation endpoints behind an active
// subscription when billing enforcement is enabled.
func (s *Server) requireSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.Billing.Enforce {
			c.Next()
			return
		}
		userID, ok := requireUser(c)
		if !ok {
			c.Abort()
			return
		}

		sub, err := s.loadSubscription(c, userID)
		if err != nil {
			s.fail(c, http.StatusInternalServerError, "failed to load subscription", err, zap.String("user_id", userID))
			c.Abort()
			return
		}
		if sub == nil || !sub.IsActive(s.now()) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "active subscription required"})
			return
		}
		c.Next()
	}
}
