package usecases

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/2509-hackz-ichthyo/numobf/internal/app"
	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
)

func newTestExecutor(repo RunRepository, opts ...DiagnosticExecutorOption) *DiagnosticExecutor {
	opts = append([]DiagnosticExecutorOption{
		WithEncoderOptions(domain.WithIntSource(rand.New(rand.NewPCG(1, 2)))),
	}, opts...)
	return NewDiagnosticExecutor(repo, app.DefaultSettings(), opts...)
}

func TestRunDiagnosticSampleText(t *testing.T) {
	repo := newMemoryRepository()
	clock := fixedClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*60*60))}
	idGen := &sequenceIDGenerator{values: []string{"run-1"}}

	executor := newTestExecutor(repo, WithClock(clock), WithIDGenerator(idGen))

	run, err := executor.RunDiagnostic(context.Background(), RunDiagnosticInput{Text: "  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.ID != "run-1" || run.Input != SampleText || !run.Changed() {
		t.Fatalf("unexpected run: %+v", run)
	}
	if !run.CreatedAt.Equal(clock.now) || run.CreatedAt.Location() != time.UTC {
		t.Errorf("unexpected createdAt: %v", run.CreatedAt)
	}

	if want := []int{16, 8, 3, 5, 12, 14, 17}; !slices.Equal(run.ArabicReplaced, want) {
		t.Errorf("ArabicReplaced = %v, want %v", run.ArabicReplaced, want)
	}
	if want := []int{30, 18, 19}; !slices.Equal(run.ArabicSkipped, want) {
		t.Errorf("ArabicSkipped = %v, want %v", run.ArabicSkipped, want)
	}

	var replaced []string
	for _, m := range run.ChineseReplaced {
		replaced = append(replaced, m.String())
	}
	want := []string{"十六(16)", "八(8)", "一(1)", "十四(14)", "十七(17)", "五(5)", "十(10)"}
	if !slices.Equal(replaced, want) {
		t.Errorf("ChineseReplaced = %v, want %v", replaced, want)
	}
	if len(run.ChineseSkipped) != 0 {
		t.Errorf("ChineseSkipped = %v, want none", run.ChineseSkipped)
	}

	revealed, _ := domain.NewRevealer().Reveal(run.Rewritten)
	if strings.Contains(revealed, "十六岁") || !strings.Contains(revealed, "她今年16岁") {
		t.Errorf("unexpected revealed text: %q", revealed)
	}

	saved, err := repo.FindByID(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("saved record not found: %v", err)
	}
	if saved.Rewritten != run.Rewritten {
		t.Errorf("saved rewrite differs from returned rewrite")
	}
}

func TestRunDiagnosticStrategyOverride(t *testing.T) {
	executor := newTestExecutor(newMemoryRepository())

	run, err := executor.RunDiagnostic(context.Background(), RunDiagnosticInput{Text: "3楼", Strategy: "floordiv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Strategy != domain.StrategyFloorDiv || !strings.Contains(run.Rewritten, "//") {
		t.Fatalf("unexpected run: %+v", run)
	}

	_, err = executor.RunDiagnostic(context.Background(), RunDiagnosticInput{Text: "3楼", Strategy: "xor"})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestRunDiagnosticSaveFailure(t *testing.T) {
	repo := newMemoryRepository()
	repo.saveErr = errors.New("disk full")
	executor := newTestExecutor(repo)

	if _, err := executor.RunDiagnostic(context.Background(), RunDiagnosticInput{Text: "1"}); !errors.Is(err, repo.saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestGetRunValidation(t *testing.T) {
	executor := newTestExecutor(newMemoryRepository())

	if _, err := executor.GetRun(context.Background(), " "); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if _, err := executor.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	repo := newMemoryRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	idGen := &sequenceIDGenerator{values: []string{"a", "b", "c"}}
	clock := &steppingClock{now: base, step: time.Minute}

	executor := newTestExecutor(repo, WithIDGenerator(idGen), WithClock(clock), WithDefaultLimit(2))

	for _, text := range []string{"1", "2", "3"} {
		if _, err := executor.RunDiagnostic(context.Background(), RunDiagnosticInput{Text: text}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	runs, err := executor.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	if !slices.Equal(ids, []string{"c", "b"}) {
		t.Fatalf("ListRuns ids = %v, want [c b]", ids)
	}

	runs, err = executor.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
}

func TestStatus(t *testing.T) {
	settings := app.DefaultSettings()
	settings.ProcessSystemPrompt = true
	settings.HintLanguage = "en"
	executor := NewDiagnosticExecutor(newMemoryRepository(), settings, WithStageNames([]string{"number-obfuscation"}))

	status := executor.Status(context.Background())

	if !status.Enabled || status.MinNumber != 1 || status.MaxNumber != 17 || status.Strategy != domain.StrategyRandom {
		t.Fatalf("unexpected status: %+v", status)
	}
	if !status.ProcessSystemPrompt || !status.InjectHint || status.HintLanguage != "en" {
		t.Fatalf("unexpected switches: %+v", status)
	}
	if !slices.Equal(status.Stages, []string{"number-obfuscation"}) {
		t.Fatalf("unexpected stages: %v", status.Stages)
	}
}

func TestDiagnosticRunClone(t *testing.T) {
	run := DiagnosticRun{ArabicReplaced: []int{1}, ChineseSkipped: []ChineseMatch{{Numeral: "十", Value: 10}}}
	clone := run.Clone()
	clone.ArabicReplaced[0] = 9
	clone.ChineseSkipped[0].Value = 9

	if run.ArabicReplaced[0] != 1 || run.ChineseSkipped[0].Value != 10 {
		t.Fatalf("clone must not share slices: %+v", run)
	}
}

// --- テスト用のスタブ実装 ---

type memoryRepository struct {
	mu      sync.Mutex
	store   map[string]DiagnosticRun
	saveErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{store: make(map[string]DiagnosticRun)}
}

func (m *memoryRepository) Save(_ context.Context, run DiagnosticRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.store[run.ID] = run.Clone()
	return nil
}

func (m *memoryRepository) FindByID(_ context.Context, id string) (DiagnosticRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.store[id]
	if !ok {
		return DiagnosticRun{}, ErrRunNotFound
	}
	return run.Clone(), nil
}

func (m *memoryRepository) ListRecent(_ context.Context, limit int) ([]DiagnosticRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]DiagnosticRun, 0, len(m.store))
	for _, run := range m.store {
		results = append(results, run.Clone())
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }

type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (s *steppingClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now
	s.now = s.now.Add(s.step)
	return now
}

type sequenceIDGenerator struct {
	mu     sync.Mutex
	values []string
	index  int
}

func (s *sequenceIDGenerator) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.values) {
		return ""
	}
	value := s.values[s.index]
	s.index++
	return value
}
