package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"300", 300, true},
		{"$300", 300, true},
		{"$ 45", 45, true},
		{"45 pesos", 45, true},
		{"45,50", 45.5, true},
		{"45.5", 45.5, true},
		{"1,500", 1500, true},
		{"1.500", 1500, true},
		{"1,500.25", 1500.25, true},
		{"1.500,25", 1500.25, true},
		{"12.345,678", 12345.68, true},
		{"0.005", 0.01, true}, // half-up rounding
		{"1000000", 1000000, true},
		{"1000000.01", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %v", tc.in, got)
		}
	}
}

func TestRoundAmount(t *testing.T) {
	if got := RoundAmount(10.456); got != 10.46 {
		t.Fatalf("got %v", got)
	}
}

func TestCents(t *testing.T) {
	cases := []struct {
		amount float64
		cents  int64
	}{
		{300, 30000},
		{45.5, 4550},
		{0.1, 10},
		{19.99, 1999},
		{1000000, 100000000},
	}
	for _, c := range cases {
		if got := ToCents(c.amount); got != c.cents {
			t.Fatalf("ToCents(%v) = %d, want %d", c.amount, got, c.cents)
		}
		if got := FromCents(c.cents); got != c.amount {
			t.Fatalf("FromCents(%d) = %v, want %v", c.cents, got, c.amount)
		}
	}
}
