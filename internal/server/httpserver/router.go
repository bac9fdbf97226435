package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2509-hackz-ichthyo/numobf/internal/app"
	"github.com/2509-hackz-ichthyo/numobf/internal/auth"
	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
	"github.com/2509-hackz-ichthyo/numobf/internal/interfaces/httpapi"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// FilterUsecase はハンドラが依存する最小限のインタフェースを表す。
type FilterUsecase interface {
	ObfuscateText(ctx context.Context, cmd app.ObfuscateCommand) (app.ObfuscateResult, error)
	FilterRequest(ctx context.Context, cmd app.FilterCommand) (app.FilterResult, error)
	Reveal(ctx context.Context, text string) (app.RevealResult, error)
}

// Options はルーターの任意設定を表す。
type Options struct {
	// Signer が nil でない場合、/v1 配下に Bearer トークン認証を掛ける。
	Signer *auth.Signer
	// CORSAllowOrigins が空でない場合、CORS ミドルウェアを有効にする。WebSocket の Origin 検証にも使う。
	CORSAllowOrigins []string
}

// NewRouter は Gin の Engine を生成し、エンドポイントを束ねる。
// ここでミドルウェアやルーティングを一元的に設定する。
func NewRouter(filterUC FilterUsecase, diagnosticUC httpapi.DiagnosticUsecase, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if len(opts.CORSAllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSAllowOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	v1 := r.Group("/v1")
	if opts.Signer != nil {
		v1.Use(RequireToken(opts.Signer))
	}
	{
		v1.POST("/obfuscate", obfuscateHandler(filterUC))
		v1.POST("/reveal", revealHandler(filterUC))
		v1.POST("/requests", filterRequestHandler(filterUC))
		v1.GET("/ws", httpapi.NewWebSocketHandler(filterUC, httpapi.OriginChecker(opts.CORSAllowOrigins)))
		httpapi.RegisterDiagnosticRoutes(v1, diagnosticUC)
	}

	return r
}

func obfuscateHandler(uc FilterUsecase) gin.HandlerFunc {
	// obfuscateHandler は POST /v1/obfuscate に届いたテキストを書き換える。
	return func(c *gin.Context) {
		var req obfuscateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "リクエストボディの形式が不正です", err)
			return
		}

		result, err := uc.ObfuscateText(c.Request.Context(), app.ObfuscateCommand{Text: req.Text, Strategy: req.Strategy})
		if err != nil {
			handleUsecaseError(c, err)
			return
		}

		c.JSON(http.StatusOK, obfuscateResponse{
			Original:  result.Original,
			Rewritten: result.Rewritten,
			Changed:   result.Changed,
			Enabled:   result.Enabled,
		})
	}
}

// revealHandler は書き換えで挿入されうる形の算術式だけを数値へ戻す。それ以外の括弧書きは変更しない。
func revealHandler(uc FilterUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req revealRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "リクエストボディの形式が不正です", err)
			return
		}

		result, err := uc.Reveal(c.Request.Context(), req.Text)
		if err != nil {
			handleUsecaseError(c, err)
			return
		}

		c.JSON(http.StatusOK, revealResponse{
			Text:        result.Text,
			Revealed:    result.Revealed,
			Expressions: result.Expressions,
		})
	}
}

func filterRequestHandler(uc FilterUsecase) gin.HandlerFunc {
	// filterRequestHandler は LLM リクエスト全体にパイプラインを適用する。
	return func(c *gin.Context) {
		var req app.LLMRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "リクエストボディの形式が不正です", err)
			return
		}

		result, err := uc.FilterRequest(c.Request.Context(), app.FilterCommand{
			Request:        req,
			AcceptLanguage: c.GetHeader("Accept-Language"),
		})
		if err != nil {
			handleUsecaseError(c, err)
			return
		}

		c.JSON(http.StatusOK, NewFilterResponse(result))
	}
}

func handleUsecaseError(c *gin.Context, err error) {
	// handleUsecaseError はユースケース層から返却されたエラーを HTTP ステータスへ写像する。
	switch {
	case errors.Is(err, app.ErrValidationFailed):
		writeError(c, http.StatusBadRequest, "入力値が不正です", err)
	case errors.Is(err, domain.ErrUnknownStrategy):
		writeError(c, http.StatusBadRequest, "サポートされていない方式です", err)
	case errors.Is(err, app.ErrStageFailed):
		writeError(c, http.StatusUnprocessableEntity, "リクエストの処理に失敗しました", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusServiceUnavailable, "処理が中断されました", err)
	default:
		writeError(c, http.StatusInternalServerError, "内部エラーが発生しました", err)
	}
}

func writeError(c *gin.Context, status int, message string, err error) {
	// writeError は共通のエラーレスポンス JSON を構築して返す。
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// obfuscateRequest は POST /v1/obfuscate のリクエストボディ。
type obfuscateRequest struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
}

// obfuscateResponse は書き換え結果のレスポンスボディ。
type obfuscateResponse struct {
	Original  string `json:"original"`
	Rewritten string `json:"rewritten"`
	Changed   bool   `json:"changed"`
	Enabled   bool   `json:"enabled"`
}

// revealRequest は POST /v1/reveal のリクエストボディ。
type revealRequest struct {
	Text string `json:"text"`
}

type revealResponse struct {
	Text        string `json:"text"`
	Revealed    string `json:"revealed"`
	Expressions int    `json:"expressions"`
}

// FilterResponse は POST /v1/requests のレスポンスボディ。Lambda のレスポンスにも使う。
type FilterResponse struct {
	Request              app.LLMRequest  `json:"request"`
	Modified             bool            `json:"modified"`
	PromptModified       bool            `json:"prompt_modified"`
	ContextsModified     int             `json:"contexts_modified"`
	SystemPromptModified bool            `json:"system_prompt_modified"`
	HintInjected         bool            `json:"hint_injected"`
	Stages               []StageResponse `json:"stages"`
}

// StageResponse はステージ 1 回分の結果。
type StageResponse struct {
	Stage                string `json:"stage"`
	Modified             bool   `json:"modified"`
	PromptModified       bool   `json:"prompt_modified"`
	ContextsModified     int    `json:"contexts_modified"`
	SystemPromptModified bool   `json:"system_prompt_modified"`
	HintInjected         bool   `json:"hint_injected"`
}

// NewFilterResponse は FilterResult をレスポンスボディへ変換する。
func NewFilterResponse(result app.FilterResult) FilterResponse {
	resp := FilterResponse{
		Request:              result.Request,
		Modified:             result.Modified,
		PromptModified:       result.PromptModified,
		ContextsModified:     result.ContextsModified,
		SystemPromptModified: result.SystemPromptModified,
		HintInjected:         result.HintInjected,
		Stages:               make([]StageResponse, len(result.Stages)),
	}
	for i, o := range result.Stages {
		resp.Stages[i] = StageResponse(o)
	}
	return resp
}

// MarshalFilterResponse は FilterResult を JSON へ変換する。
func MarshalFilterResponse(result app.FilterResult) ([]byte, error) {
	return json.Marshal(NewFilterResponse(result))
}
