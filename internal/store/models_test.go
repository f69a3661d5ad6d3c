package store

import (
	"errors"
	"testing"
)

func TestAlertValidate(t *testing.T) {
	tests := []struct {
		name  string
		alert Alert
		want  error
	}{
		{"valid above", Alert{Symbol: "AAPL", Rule: RuleAbove, Threshold: 200}, nil},
		{"valid below", Alert{Symbol: "TSLA", Rule: RuleBelow, Threshold: 150}, nil},
		{"missing symbol", Alert{Rule: RuleAbove, Threshold: 200}, ErrEmptySymbol},
		{"bad rule", Alert{Symbol: "AAPL", Rule: "crosses", Threshold: 200}, ErrBadRule},
		{"zero threshold", Alert{Symbol: "AAPL", Rule: RuleAbove}, ErrBadThreshold},
		{"negative threshold", Alert{Symbol: "AAPL", Rule: RuleBelow, Threshold: -5}, ErrBadThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.alert.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAlertShouldFire(t *testing.T) {
	above := Alert{Symbol: "AAPL", Rule: RuleAbove, Threshold: 200}
	if above.ShouldFire(199.99) {
		t.Error("above alert fired below threshold")
	}
	if !above.ShouldFire(200) {
		t.Error("above alert should fire at threshold")
	}
	if !above.ShouldFire(210) {
		t.Error("above alert should fire past threshold")
	}

	below := Alert{Symbol: "AAPL", Rule: RuleBelow, Threshold: 150}
	if below.ShouldFire(150.01) {
		t.Error("below alert fired above threshold")
	}
	if !below.ShouldFire(149) {
		t.Error("below alert should fire under threshold")
	}

	if (Alert{Rule: "bogus", Threshold: 1}).ShouldFire(1) {
		t.Error("unknown rule should never fire")
	}
}
