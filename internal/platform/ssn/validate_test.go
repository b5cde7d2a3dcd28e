package ssn

import "testing"

func TestValidate(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"valid with dash", "900101-1234568", true},
		{"valid without dash", "9001011234568", true},
		{"valid second sample", "880724-2345672", true},
		{"wrong check digit", "900101-1234567", false},
		{"too short", "900101-123456", false},
		{"too long", "900101-12345678", false},
		{"empty", "", false},
		{"letters only", "abcdef-ghijklm", false},
		{"month zero", "900001-1234568", false},
		{"month thirteen", "901301-1234568", false},
		{"day zero", "900100-1234568", false},
		{"day thirty-two", "900132-1234568", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Validate(tc.candidate); got != tc.want {
				t.Errorf("Validate(%q) = %v, want %v", tc.candidate, got, tc.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"900101-1234568":   "9001011234568",
		"900101 1234568":   "9001011234568",
		"9001011234568":    "9001011234568",
		"abc":              "",
		"1a2b3c":           "123",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
