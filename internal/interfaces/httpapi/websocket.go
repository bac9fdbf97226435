package httpapi

import (
	"context"
	"log"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/2509-hackz-ichthyo/numobf/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// maxFrameBytes は 1 フレームで受け付ける最大バイト数。
const maxFrameBytes = 1 << 20

// TextObfuscator は WebSocket ハンドラが利用するユースケースの最小インタフェース。
type TextObfuscator interface {
	ObfuscateText(ctx context.Context, cmd app.ObfuscateCommand) (app.ObfuscateResult, error)
}

// OriginChecker は許可リストに基づく Origin 検証関数を返す。
// 許可リストが空の場合はすべて許可する。Origin ヘッダが無い接続は常に許可する。
func OriginChecker(allowed []string) func(r *http.Request) bool {
	allowed = slices.Clone(allowed)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		if slices.Contains(allowed, origin) {
			return true
		}
		log.Printf("WebSocket: 許可されていない Origin を拒否しました: %s", origin)
		return false
	}
}

// NewWebSocketHandler は受信したテキストフレームを書き換えて返す WebSocket ハンドラを生成する。
// クエリ strategy でセッション中の方式を指定できる。
func NewWebSocketHandler(obfuscator TextObfuscator, checkOrigin func(r *http.Request) bool) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	return func(c *gin.Context) {
		strategy := strings.TrimSpace(c.Query("strategy"))

		// ハンドシェイク
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("upgrade:", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxFrameBytes)

		ctx := c.Request.Context()

		// 接続が切れるまでメッセージを読み取り、書き換えて返信する
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Println("read:", err)
				}
				return
			}

			if mt != websocket.TextMessage {
				closeWith(conn, websocket.CloseUnsupportedData, "text frames only")
				return
			}

			result, err := obfuscator.ObfuscateText(ctx, app.ObfuscateCommand{Text: string(msg), Strategy: strategy})
			if err != nil {
				closeWith(conn, websocket.ClosePolicyViolation, err.Error())
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte(result.Rewritten)); err != nil {
				log.Println("write:", err)
				return
			}
		}
	}
}

// maxCloseReason は close フレームの理由文の上限バイト数。制御フレームのペイロードは 125 バイトまで。
const maxCloseReason = 120

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, truncateReason(reason))
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		log.Println("close:", err)
	}
}

// truncateReason は理由文を maxCloseReason バイト以内に収める。マルチバイト文字の途中では切らない。
func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	cut := maxCloseReason
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
