package prober

import "testing"

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30000/1001", 29.97002997002997},
		{"30/1", 30},
		{"0/0", 0},
		{"", 0},
		{"25", 25},
	}
	for _, c := range cases {
		got := parseFrameRate(c.in)
		diff := got - c.want
		if diff < -0.0001 || diff > 0.0001 {
			t.Errorf("parseFrameRate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	if v, ok := parseFloat("12.5"); !ok || v != 12.5 {
		t.Errorf("expected 12.5/true, got %v/%v", v, ok)
	}
	if _, ok := parseFloat(""); ok {
		t.Errorf("expected false for empty string")
	}
	if _, ok := parseFloat("not-a-number"); ok {
		t.Errorf("expected false for invalid string")
	}
}
