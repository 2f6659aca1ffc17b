package cmd

import (
	"testing"

	"github.com/kaziconnect/kaziconnect/internal/matching"
)

func TestReportByStrategyOrder(t *testing.T) {
	t.Parallel()

	results := []matching.Result{
		{Strategy: matching.StrategyFallback},
		{Strategy: matching.StrategyKeyword},
		{Strategy: matching.StrategyFallback},
		{Strategy: matching.StrategyKeyword},
		{Strategy: matching.StrategyKeyword},
	}

	expect := []strategyCount{
		{strategy: matching.StrategyAI, count: 0},
		{strategy: matching.StrategyKeyword, count: 3},
		{strategy: matching.StrategyFallback, count: 2},
	}

	for i := 0; i < 5; i++ {
		got := reportByStrategy(results)
		if len(got) != len(expect) {
			t.Fatalf("expected %d entries, got %+v", len(expect), got)
		}
		for j := range expect {
			if got[j] != expect[j] {
				t.Fatalf("entry %d: expected %+v, got %+v", j, expect[j], got[j])
			}
		}
	}
}
