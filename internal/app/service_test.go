package app

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
)

func newTestService(t *testing.T, settings Settings, opts ...ServiceOption) *Service {
	t.Helper()

	opts = append(opts,
		WithServiceLogger(&recordingLogger{}),
		WithEncoderOptions(domain.WithIntSource(rand.New(rand.NewPCG(3, 5)))),
	)
	service, err := NewService(settings, opts...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return service
}

func TestNewServiceValidatesSettings(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	settings.Options.Range = domain.EncodingRange{Min: 9, Max: 3}

	if _, err := NewService(settings); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestServiceObfuscateText(t *testing.T) {
	t.Parallel()

	service := newTestService(t, DefaultSettings())

	result, err := service.ObfuscateText(context.Background(), ObfuscateCommand{Text: "这个女孩今年16岁", Strategy: "modulo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Changed || !result.Enabled || result.Original != "这个女孩今年16岁" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(result.Rewritten, "%") {
		t.Fatalf("strategy override should use modulo: %q", result.Rewritten)
	}

	if _, err := service.ObfuscateText(context.Background(), ObfuscateCommand{Text: "1", Strategy: "bogus"}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestServiceObfuscateTextDisabled(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	settings.Enable = false
	service := newTestService(t, settings)

	result, err := service.ObfuscateText(context.Background(), ObfuscateCommand{Text: "3个"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Enabled || result.Changed || result.Rewritten != "3个" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestServiceFilterRequest(t *testing.T) {
	t.Parallel()

	appendNumber := stubStage{
		name:  "signature",
		order: 0,
		apply: func(req *LLMRequest) { req.Prompt += "（第5条）" },
	}
	service := newTestService(t, DefaultSettings(), WithStages(appendNumber))

	if got := service.Stages(); !slices.Equal(got, []string{"signature", numberStageName}) {
		t.Fatalf("Stages() = %v", got)
	}

	input := LLMRequest{
		Prompt:   "你好",
		Contexts: []json.RawMessage{json.RawMessage(`{"role":"user","content":"8岁"}`)},
	}
	result, err := service.FilterRequest(context.Background(), FilterCommand{Request: input})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if input.Prompt != "你好" || string(input.Contexts[0]) != `{"role":"user","content":"8岁"}` {
		t.Fatalf("input request must not be modified: %+v", input)
	}
	if strings.Contains(result.Request.Prompt, "第5条") {
		t.Fatalf("text added by earlier stages must be obfuscated: %q", result.Request.Prompt)
	}
	if revealed, _ := domain.NewRevealer().Reveal(result.Request.Prompt); revealed != "你好（第5条）" {
		t.Fatalf("unexpected prompt: %q", result.Request.Prompt)
	}
	if !result.Modified || !result.PromptModified || result.ContextsModified != 1 || !result.HintInjected {
		t.Fatalf("unexpected aggregate: %+v", result)
	}
	if len(result.Stages) != 2 || result.Stages[1].Stage != numberStageName {
		t.Fatalf("unexpected stage outcomes: %+v", result.Stages)
	}
}

func TestServiceFilterRequestStageFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	service := newTestService(t, DefaultSettings(), WithStages(stubStage{name: "broken", err: boom}))

	if _, err := service.FilterRequest(context.Background(), FilterCommand{}); !errors.Is(err, ErrStageFailed) {
		t.Fatalf("expected ErrStageFailed, got %v", err)
	}
}

func TestServiceReveal(t *testing.T) {
	t.Parallel()

	service := newTestService(t, DefaultSettings())

	result, err := service.Reveal(context.Background(), "她(40-24)岁，有(47%21)个(9//0)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Revealed != "她16岁，有5个(9//0)" || result.Expressions != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
