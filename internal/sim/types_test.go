package sim

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_AddScaled(t *testing.T) {
	a := State{1, 2, 3}
	got := a.AddScaled(0.5, State{2, 4, 6})
	if got[0] != 2 || got[1] != 4 || got[2] != 6 {
		t.Errorf("AddScaled failed: got %v", got)
	}
	if a[0] != 1 {
		t.Error("AddScaled modified its receiver")
	}

	c := a.Clone()
	c[0] = 99
	if a[0] == 99 {
		t.Error("Clone did not create independent copy")
	}
}

func TestUnstableError(t *testing.T) {
	err := &UnstableError{Time: 1.5, Variables: []string{"x", "y"}}
	expected := "sim: simulation unstable (state diverged) at t=1.5000: x, y"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrUnstable) {
		t.Error("expected UnstableError to match ErrUnstable")
	}
}
