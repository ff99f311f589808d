package cooldown

import (
	"testing"
	"time"
)

func TestNextDoubles(t *testing.T) {
	tr := New(1500*time.Millisecond, 2, 0)
	want := []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second}
	for i, d := range want {
		if got := tr.Next(); got != d {
			t.Errorf("Next() call %d = %v, want %v", i+1, got, d)
		}
	}
	if got := tr.Current(); got != 12*time.Second {
		t.Errorf("Current() = %v, want 12s", got)
	}
}

func TestNextCustomBase(t *testing.T) {
	tr := New(time.Second, 3, 0)
	if got := tr.Next(); got != 3*time.Second {
		t.Errorf("Next() = %v, want 3s", got)
	}
}

func TestStaggerBounds(t *testing.T) {
	tr := New(time.Second, 2, 0.5)
	tr.rand = func() float64 { return 0 }
	if got := tr.Next(); got != 2*time.Second {
		t.Errorf("Next() with zero draw = %v, want 2s", got)
	}

	tr = New(time.Second, 2, 0.5)
	tr.rand = func() float64 { return 0.999999 }
	got := tr.Next()
	if got < 2*time.Second || got >= 3*time.Second {
		t.Errorf("Next() with maximal draw = %v, want in [2s, 3s)", got)
	}
}

func TestDefaultsApplied(t *testing.T) {
	tr := New(time.Second, 0, -1)
	if got := tr.Next(); got != 2*time.Second {
		t.Errorf("Next() with defaulted base = %v, want 2s", got)
	}
}
