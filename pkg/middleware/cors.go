package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsAllowMethods はプリフライトに返す許可メソッド。
const corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"

// corsAllowHeaders はプリフライトに返す許可ヘッダー。
// EventSourceの再接続で送られるLast-Event-IDも含める。
const corsAllowHeaders = "Authorization, Content-Type, Cache-Control, Last-Event-ID"

// CORS は許可したオリジンからのクロスオリジンリクエストを受け付けるGinミドルウェアを返す。
// "*" を含めると全オリジンを許可する。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
			continue
		}
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, ok := originsSet[origin]
		if origin != "" && (ok || allowAll) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", corsAllowMethods)
			c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
