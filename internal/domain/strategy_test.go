package domain

import (
	"errors"
	"testing"
)

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		want    Strategy
		wantErr bool
	}{
		{name: "random", input: "random", want: StrategyRandom},
		{name: "difference", input: "difference", want: StrategyDifference},
		{name: "modulo", input: "modulo", want: StrategyModulo},
		{name: "floordiv", input: "floordiv", want: StrategyFloorDiv},
		{name: "invalid", input: "multiply", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStrategy(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownStrategy) {
					t.Fatalf("expected ErrUnknownStrategy, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected strategy: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStrategyOrDefault(t *testing.T) {
	t.Parallel()

	if got := StrategyOrDefault("modulo"); got != StrategyModulo {
		t.Fatalf("StrategyOrDefault(modulo) = %v", got)
	}
	if got := StrategyOrDefault("bogus"); got != StrategyDifference {
		t.Fatalf("unknown strategies should fall back to difference, got %v", got)
	}
}

func TestStrategyDescription(t *testing.T) {
	t.Parallel()

	if got := StrategyFloorDiv.Description(); got != "整除法 (a//b)" {
		t.Fatalf("unexpected description: %s", got)
	}
	if got := Strategy("custom").Description(); got != "custom" {
		t.Fatalf("unknown strategy should describe itself, got %s", got)
	}
}
