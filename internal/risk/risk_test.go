package risk

import (
	"testing"

	"fnobot-go/internal/signal"
)

func TestPerUnit(t *testing.T) {
	if got := PerUnit(12, 8); got != 12 {
		t.Fatalf("expected ATR to dominate, got %v", got)
	}
	if got := PerUnit(5, 9.5); got != 9.5 {
		t.Fatalf("expected candle body to dominate, got %v", got)
	}
}

func TestLevelsBuy(t *testing.T) {
	levels := Levels(signal.Buy, 22000, 40, 1.5)
	if levels.Stop != 21960 {
		t.Fatalf("unexpected stop %v", levels.Stop)
	}
	if levels.Target != 22060 {
		t.Fatalf("unexpected target %v", levels.Target)
	}
	if !(levels.Stop < levels.Entry && levels.Entry < levels.Target) {
		t.Fatalf("expected stop < entry < target, got %+v", levels)
	}
}

func TestLevelsSell(t *testing.T) {
	levels := Levels(signal.Sell, 22000, 40, 2)
	if levels.Stop != 22040 {
		t.Fatalf("unexpected stop %v", levels.Stop)
	}
	if levels.Target != 21920 {
		t.Fatalf("unexpected target %v", levels.Target)
	}
	if !(levels.Target < levels.Entry && levels.Entry < levels.Stop) {
		t.Fatalf("expected target < entry < stop, got %+v", levels)
	}
}
