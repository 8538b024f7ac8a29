package domain

import "testing"

func TestBumpVersion(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"", "1"},
		{"3", "4"},
		{"1.2", "1.3"},
		{"2.0.11", "2.0.12"},
		{"0.9", "0.10"},
		{"1.0beta", "1.0beta.1"},
		{"rc", "rc.1"},
	}

	for _, tt := range tests {
		if got := BumpVersion(tt.version); got != tt.want {
			t.Errorf("BumpVersion(%q) = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestBumpVersion_Monotonic(t *testing.T) {
	v := "1.0"
	seen := map[string]bool{v: true}

	for i := 0; i < 5; i++ {
		v = BumpVersion(v)
		if seen[v] {
			t.Fatalf("version %q repeated", v)
		}
		seen[v] = true
	}
}
