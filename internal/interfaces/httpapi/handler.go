package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
	"github.com/2509-hackz-ichthyo/numobf/internal/usecases"
	"github.com/gin-gonic/gin"
)

// DiagnosticUsecase はハンドラが利用するユースケースの最小インタフェース。
type DiagnosticUsecase interface {
	RunDiagnostic(ctx context.Context, input usecases.RunDiagnosticInput) (usecases.DiagnosticRun, error)
	GetRun(ctx context.Context, id string) (usecases.DiagnosticRun, error)
	ListRuns(ctx context.Context, limit int) ([]usecases.DiagnosticRun, error)
	Status(ctx context.Context) usecases.Status
}

// RegisterDiagnosticRoutes は診断系のエンドポイントを rg に登録する。
func RegisterDiagnosticRoutes(rg gin.IRoutes, diagnosticUC DiagnosticUsecase) {
	rg.POST("/numtest", runDiagnosticHandler(diagnosticUC))
	rg.GET("/numtest/:id", getRunHandler(diagnosticUC))
	rg.GET("/numtest", listRunsHandler(diagnosticUC))
	rg.GET("/status", statusHandler(diagnosticUC))
}

func runDiagnosticHandler(diagnosticUC DiagnosticUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runDiagnosticRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				writeError(c, http.StatusBadRequest, "リクエストボディの形式が不正です", err)
				return
			}
		}

		run, err := diagnosticUC.RunDiagnostic(c.Request.Context(), usecases.RunDiagnosticInput{
			Text:     req.Text,
			Strategy: req.Strategy,
		})
		if err != nil {
			handleUsecaseError(c, err)
			return
		}

		if wantsText(c) {
			c.String(http.StatusCreated, usecases.FormatRun(run))
			return
		}
		c.JSON(http.StatusCreated, newRunResponse(run))
	}
}

func getRunHandler(diagnosticUC DiagnosticUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := diagnosticUC.GetRun(c.Request.Context(), c.Param("id"))
		if err != nil {
			handleUsecaseError(c, err)
			return
		}

		if wantsText(c) {
			c.String(http.StatusOK, usecases.FormatRun(run))
			return
		}
		c.JSON(http.StatusOK, newRunResponse(run))
	}
}

func listRunsHandler(diagnosticUC DiagnosticUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if rawLimit := strings.TrimSpace(c.Query("limit")); rawLimit != "" {
			value, err := strconv.Atoi(rawLimit)
			if err != nil {
				writeError(c, http.StatusBadRequest, "limit は数値で指定してください", err)
				return
			}
			limit = value
		}

		runs, err := diagnosticUC.ListRuns(c.Request.Context(), limit)
		if err != nil {
			handleUsecaseError(c, err)
			return
		}

		response := make([]runResponse, len(runs))
		for i, run := range runs {
			response[i] = newRunResponse(run)
		}

		c.JSON(http.StatusOK, response)
	}
}

func statusHandler(diagnosticUC DiagnosticUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := diagnosticUC.Status(c.Request.Context())

		if wantsText(c) {
			c.String(http.StatusOK, usecases.FormatStatus(status))
			return
		}
		c.JSON(http.StatusOK, newStatusResponse(status))
	}
}

func wantsText(c *gin.Context) bool {
	return c.Query("format") == "text"
}

func handleUsecaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecases.ErrValidationFailed):
		writeError(c, http.StatusBadRequest, "入力値が不正です", err)
	case errors.Is(err, usecases.ErrRunNotFound):
		writeError(c, http.StatusNotFound, "指定された履歴が見つかりません", err)
	case errors.Is(err, domain.ErrUnknownStrategy):
		writeError(c, http.StatusBadRequest, "サポートされていない方式です", err)
	default:
		writeError(c, http.StatusInternalServerError, "内部エラーが発生しました", err)
	}
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// runDiagnosticRequest は POST /v1/numtest のリクエストボディ。
type runDiagnosticRequest struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
}

// runResponse は診断履歴のレスポンスボディ。
type runResponse struct {
	ID              string                  `json:"id"`
	Input           string                  `json:"input"`
	Rewritten       string                  `json:"rewritten"`
	Changed         bool                    `json:"changed"`
	ArabicReplaced  []int                   `json:"arabic_replaced"`
	ArabicSkipped   []int                   `json:"arabic_skipped"`
	ChineseReplaced []usecases.ChineseMatch `json:"chinese_replaced"`
	ChineseSkipped  []usecases.ChineseMatch `json:"chinese_skipped"`
	MinNumber       int                     `json:"min_number"`
	MaxNumber       int                     `json:"max_number"`
	Strategy        string                  `json:"strategy"`
	CreatedAt       time.Time               `json:"created_at"`
}

func newRunResponse(run usecases.DiagnosticRun) runResponse {
	return runResponse{
		ID:              run.ID,
		Input:           run.Input,
		Rewritten:       run.Rewritten,
		Changed:         run.Changed(),
		ArabicReplaced:  nonNil(run.ArabicReplaced),
		ArabicSkipped:   nonNil(run.ArabicSkipped),
		ChineseReplaced: nonNil(run.ChineseReplaced),
		ChineseSkipped:  nonNil(run.ChineseSkipped),
		MinNumber:       run.MinNumber,
		MaxNumber:       run.MaxNumber,
		Strategy:        string(run.Strategy),
		CreatedAt:       run.CreatedAt,
	}
}

// statusResponse は GET /v1/status のレスポンスボディ。
type statusResponse struct {
	Enabled             bool     `json:"enabled"`
	MinNumber           int      `json:"min_number"`
	MaxNumber           int      `json:"max_number"`
	Strategy            string   `json:"strategy"`
	StrategyDescription string   `json:"strategy_description"`
	ProcessSystemPrompt bool     `json:"process_system_prompt"`
	InjectHint          bool     `json:"inject_hint"`
	HintLanguage        string   `json:"hint_language"`
	Stages              []string `json:"stages"`
}

func newStatusResponse(status usecases.Status) statusResponse {
	return statusResponse{
		Enabled:             status.Enabled,
		MinNumber:           status.MinNumber,
		MaxNumber:           status.MaxNumber,
		Strategy:            string(status.Strategy),
		StrategyDescription: status.Strategy.Description(),
		ProcessSystemPrompt: status.ProcessSystemPrompt,
		InjectHint:          status.InjectHint,
		HintLanguage:        status.HintLanguage,
		Stages:              nonNil(status.Stages),
	}
}

// nonNil は JSON で null ではなく [] を出力するために空スライスへ置き換える。
func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
