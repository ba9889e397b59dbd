package cli

import "testing"

func TestParsePort(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"7077", 7077, false},
		{" 7077 ", 7077, false},
		{"0", 0, false},
		{"65535", 65535, false},
		{"65536", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"seven", 0, true},
	}
	for _, tc := range cases {
		got, err := ParsePort(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePort(%q) accepted invalid input", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePort(%q): %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePort(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress(""); err == nil {
		t.Error("empty address accepted")
	}
	if _, err := ParseAddress("   "); err == nil {
		t.Error("blank address accepted")
	}
	got, err := ParseAddress(" 127.0.0.1 ")
	if err != nil {
		t.Fatalf("127.0.0.1 rejected: %v", err)
	}
	if got != "127.0.0.1" {
		t.Errorf("got %q, want trimmed address", got)
	}
}
