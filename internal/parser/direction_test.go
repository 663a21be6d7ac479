package parser

import (
	"testing"

	"signal_trader/internal/models"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		text string
		want models.Direction
		ok   bool
	}{
		{"UP", models.DirectionCall, true},
		{"up", models.DirectionCall, true},
		{"🔼UP", models.DirectionCall, true},
		{"CALL now", models.DirectionCall, true},
		{"▲", models.DirectionCall, true},
		{"⬆️", models.DirectionCall, true},
		{"DOWN", models.DirectionPut, true},
		{"DOWN🔽", models.DirectionPut, true},
		{"put", models.DirectionPut, true},
		{"▼", models.DirectionPut, true},
		{"SETUP ready", models.DirectionNone, false},
		{"PUTIN", models.DirectionNone, false},
		{"CALLBACK", models.DirectionNone, false},
		{"UP or DOWN", models.DirectionNone, false},
		{"hello", models.DirectionNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseDirection(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("ParseDirection(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}
