package mathx

import "testing"

func TestClamp(t *testing.T) {
	if Clamp(150, 0, 100) != 100 || Clamp(-3, 0, 100) != 0 || Clamp(42, 100, 0) != 42 {
		t.Fatal("clamp")
	}
}

func TestRoundDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{7, 2, 4}, {6, 4, 2}, {5, 4, 1}, {-7, 2, -4}, {7, -2, -4}, {3, 0, 0},
	}
	for _, c := range cases {
		if got := RoundDiv(c.a, c.b); got != c.want {
			t.Fatalf("RoundDiv(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		v, lo, hi int32
		want      int
	}{
		{3300, 3300, 4200, 0},
		{4200, 3300, 4200, 100},
		{3750, 3300, 4200, 50},
		{5000, 3300, 4200, 100},
		{1000, 3300, 4200, 0},
		{1, 5, 5, 0},
	}
	for _, c := range cases {
		if got := Percent(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("Percent(%d)=%d want %d", c.v, got, c.want)
		}
	}
}
