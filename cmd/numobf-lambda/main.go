package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/2509-hackz-ichthyo/numobf/internal/app"
	"github.com/2509-hackz-ichthyo/numobf/internal/config"
	"github.com/2509-hackz-ichthyo/numobf/internal/server/httpserver"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

// RequestFilter は LLM リクエストを書き換えるユースケース。
type RequestFilter interface {
	FilterRequest(ctx context.Context, cmd app.FilterCommand) (app.FilterResult, error)
}

var jsonHeaders = map[string]string{"Content-Type": "application/json; charset=utf-8"}

// newHandler は API Gateway のプロキシ統合から LLM リクエストを受け取り、書き換え結果を返すハンドラを生成する。
func newHandler(filter RequestFilter) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		body := []byte(request.Body)
		if request.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(request.Body)
			if err != nil {
				return errorResponse(http.StatusBadRequest, "body is not valid base64", err), nil
			}
			body = decoded
		}

		var req app.LLMRequest
		if err := json.Unmarshal(body, &req); err != nil {
			log.Printf("Error decoding request body: %v", err)
			return errorResponse(http.StatusBadRequest, "invalid request body", err), nil
		}

		result, err := filter.FilterRequest(ctx, app.FilterCommand{
			Request:        req,
			AcceptLanguage: headerValue(request.Headers, "Accept-Language"),
		})
		if err != nil {
			log.Printf("Error filtering request: %v", err)
			if errors.Is(err, app.ErrStageFailed) {
				return errorResponse(http.StatusUnprocessableEntity, "pipeline stage failed", err), nil
			}
			return errorResponse(http.StatusInternalServerError, "internal server error", err), err
		}

		payload, err := httpserver.MarshalFilterResponse(result)
		if err != nil {
			return errorResponse(http.StatusInternalServerError, "internal server error", err), err
		}

		log.Printf("Request filtered: modified=%t, contexts=%d", result.Modified, result.ContextsModified)

		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    jsonHeaders,
			Body:       string(payload),
		}, nil
	}
}

// API Gateway はヘッダー名を小文字化して渡すことがある
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for key, v := range headers {
		if strings.EqualFold(key, name) {
			return v
		}
	}
	return ""
}

func errorResponse(status int, message string, err error) events.APIGatewayProxyResponse {
	payload, _ := json.Marshal(map[string]string{
		"error":   message,
		"details": err.Error(),
	})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       string(payload),
	}
}

func newService() (*app.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	settings, err := cfg.Obfuscator.Settings()
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	return app.NewService(settings)
}

func main() {
	service, err := newService()
	if err != nil {
		log.Fatalf("%v", err)
	}
	lambda.Start(newHandler(service))
}
