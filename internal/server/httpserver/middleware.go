package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/2509-hackz-ichthyo/numobf/internal/auth"
	"github.com/gin-gonic/gin"
)

// ContextSubjectKey はトークンの subject を gin.Context に保存するキー。
const ContextSubjectKey = "subject"

var errMissingToken = errors.New("authorization token is missing")

// RequireToken は Bearer トークンを検証するミドルウェア。
// ブラウザの WebSocket はヘッダを付与できないため、クエリ token も受け付ける。
func RequireToken(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			writeError(c, http.StatusUnauthorized, "認証が必要です", errMissingToken)
			c.Abort()
			return
		}

		claims, err := signer.Verify(token)
		if err != nil {
			writeError(c, http.StatusUnauthorized, "トークンが無効または期限切れです", err)
			c.Abort()
			return
		}

		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
