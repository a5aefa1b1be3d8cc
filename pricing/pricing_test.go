package pricing

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"₪60,000", 60000, true},
		{"$1,234", 1234, true},
		{"$1,234.99", 1234, true},
		{" ₪ 45,500 ", 45500, true},
		{"€12.000", 12, true},
		{"80000 negotiable", 80000, true},
		{"Free", 0, false},
		{"", 0, false},
		{"₪", 0, false},
		{"Contact seller", 0, false},
		{"₪2,147,483,647", 2147483647, true},
		{"₪3,000,000,000", 0, false},
		{"₪99999999999999999999", 0, false},
		{"-₪99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		got, ok := Parse(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("Parse(%q) = (%d, %t), want (%d, %t)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRangeContains_Boundaries(t *testing.T) {
	r := Range{Min: 10000, Max: 100000}

	tests := []struct {
		price string
		want  bool
	}{
		{"₪10,000", true},
		{"₪100,000", true},
		{"₪9,999", false},
		{"₪100,001", false},
		{"₪60,000", true},
		{"Free", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.price); got != tt.want {
			t.Fatalf("Contains(%q) = %t, want %t", tt.price, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := map[int]string{
		0:       "₪0",
		999:     "₪999",
		60000:   "₪60,000",
		1234567: "₪1,234,567",
		-5000:   "-₪5,000",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Fatalf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}
