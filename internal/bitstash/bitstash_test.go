package bitstash

import "testing"

func TestNumberOfBits(t *testing.T) {
	cases := []struct {
		maxValue uint64
		want     uint
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{23, 5},
		{59, 6},
		{63, 6},
		{64, 7},
		{366, 9},
		{4095, 12},
		{999_999_999, 30},
		{^uint64(0), 64},
	}
	for _, tc := range cases {
		if got := NumberOfBits(tc.maxValue); got != tc.want {
			t.Errorf("NumberOfBits(%d) = %d, want %d", tc.maxValue, got, tc.want)
		}
	}
}

func TestBitsRoundTrip(t *testing.T) {
	for n := uint(1); n <= 64; n++ {
		if got := NumberOfBits(MaxValueForBits(n)); got != n {
			t.Errorf("NumberOfBits(MaxValueForBits(%d)) = %d, want %d", n, got, n)
		}
	}
}

func TestMaxValueForBitsCapsAt64(t *testing.T) {
	if got := MaxValueForBits(64); got != ^uint64(0) {
		t.Errorf("MaxValueForBits(64) = %#x, want all ones", got)
	}
	if got := MaxValueForBits(70); got != ^uint64(0) {
		t.Errorf("MaxValueForBits(70) = %#x, want all ones", got)
	}
}

func TestStashRoundTrip(t *testing.T) {
	bases := []uint64{0, 1, 0xDEAD, 1 << 33}
	fields := []struct {
		value, max uint64
	}{
		{0, 1},
		{1, 1},
		{17, 23},
		{59, 59},
		{366, 366},
		{999_999_999, 999_999_999},
	}
	for _, base := range bases {
		for _, f := range fields {
			acc := AddToRight(base, f.value, f.max)
			rest, value := TakeFromRight(acc, f.max)
			if rest != base || value != f.value {
				t.Errorf("TakeFromRight(AddToRight(%#x, %d, %d)) = (%#x, %d), want (%#x, %d)",
					base, f.value, f.max, rest, value, base, f.value)
			}
		}
	}
}

func TestReadMatchesStashedLayout(t *testing.T) {
	// Pack three fields right to left, then read the middle one in place.
	acc := AddToRight(0, 5, 7)    // 3 bits
	acc = AddToRight(acc, 9, 15)  // 4 bits
	acc = AddToRight(acc, 2, 3)   // 2 bits
	if got := Read(acc, 4, 2); got != 9 {
		t.Errorf("Read middle field = %d, want 9", got)
	}
	if got := Read(acc, 2, 0); got != 2 {
		t.Errorf("Read low field = %d, want 2", got)
	}
	if got := Read(acc, 3, 6); got != 5 {
		t.Errorf("Read high field = %d, want 5", got)
	}
}
