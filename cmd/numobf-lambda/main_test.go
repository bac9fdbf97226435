package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/2509-hackz-ichthyo/numobf/internal/app"
	"github.com/aws/aws-lambda-go/events"
)

type stubFilter struct {
	result app.FilterResult
	err    error
	got    app.FilterCommand
}

func (s *stubFilter) FilterRequest(_ context.Context, cmd app.FilterCommand) (app.FilterResult, error) {
	s.got = cmd
	if s.err != nil {
		return app.FilterResult{}, s.err
	}
	if s.result.Request.Prompt == "" {
		s.result.Request = cmd.Request
	}
	return s.result, nil
}

func TestHandlerFiltersRequest(t *testing.T) {
	t.Parallel()

	service, err := app.NewService(app.DefaultSettings())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	resp, err := newHandler(service)(context.Background(), events.APIGatewayProxyRequest{
		Headers: map[string]string{"accept-language": "en-US,en;q=0.9"},
		Body:    `{"prompt":"她16岁，第18节"}`,
	})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
	}

	var body struct {
		Request struct {
			Prompt       string `json:"prompt"`
			SystemPrompt string `json:"system_prompt"`
		} `json:"request"`
		PromptModified bool `json:"prompt_modified"`
		HintInjected   bool `json:"hint_injected"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !body.PromptModified || !body.HintInjected {
		t.Fatalf("unexpected flags: %+v", body)
	}
	if strings.Contains(body.Request.Prompt, "16岁") || !strings.Contains(body.Request.Prompt, "第18节") {
		t.Fatalf("unexpected prompt: %q", body.Request.Prompt)
	}
	if !strings.Contains(body.Request.SystemPrompt, "[System note]") {
		t.Fatalf("expected english hint, got %q", body.Request.SystemPrompt)
	}
}

func TestHandlerBase64Body(t *testing.T) {
	t.Parallel()

	filter := &stubFilter{}
	resp, err := newHandler(filter)(context.Background(), events.APIGatewayProxyRequest{
		Headers:         map[string]string{"Accept-Language": "zh-CN"},
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"prompt":"hi"}`)),
		IsBase64Encoded: true,
	})
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, err = %v", resp.StatusCode, err)
	}
	if filter.got.Request.Prompt != "hi" || filter.got.AcceptLanguage != "zh-CN" {
		t.Fatalf("unexpected command: %+v", filter.got)
	}
}

func TestHandlerBadRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request events.APIGatewayProxyRequest
	}{
		{name: "invalid json", request: events.APIGatewayProxyRequest{Body: "{"}},
		{name: "invalid base64", request: events.APIGatewayProxyRequest{Body: "%%%", IsBase64Encoded: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := newHandler(&stubFilter{})(context.Background(), tt.request)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != http.StatusBadRequest || !strings.Contains(resp.Body, `"error"`) {
				t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
			}
		})
	}
}

func TestHandlerFilterErrors(t *testing.T) {
	t.Parallel()

	stageErr := &stubFilter{err: errors.Join(app.ErrStageFailed, errors.New("signature: boom"))}
	resp, err := newHandler(stageErr)(context.Background(), events.APIGatewayProxyRequest{Body: `{"prompt":"1"}`})
	if err != nil || resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, err = %v", resp.StatusCode, err)
	}

	internal := &stubFilter{err: errors.New("boom")}
	resp, err = newHandler(internal)(context.Background(), events.APIGatewayProxyRequest{Body: `{"prompt":"1"}`})
	if err == nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, err = %v", resp.StatusCode, err)
	}
}

func TestHeaderValue(t *testing.T) {
	t.Parallel()

	headers := map[string]string{"accept-language": "en"}
	if got := headerValue(headers, "Accept-Language"); got != "en" {
		t.Fatalf("headerValue() = %q", got)
	}
	if got := headerValue(headers, "X-Missing"); got != "" {
		t.Fatalf("headerValue() = %q", got)
	}
}
