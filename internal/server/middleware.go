package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorIdentity names who triggered a manual action. The dashboard
// forwards the signed-in operator in X-Operator-Id; anything else is
// recorded as a plain manual trigger.
func operatorIdentity(c *gin.Context) string {
	operator := strings.TrimSpace(c.GetHeader("X-Operator-Id"))
	if operator == "" {
		return "manual"
	}
	return "operator:" + operator
}
