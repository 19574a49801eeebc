package eventbus

import "testing"

func TestCompilePattern(t *testing.T) {
	cases := []struct {
		pattern       string
		qualifiedType string
		want          bool
	}{
		{"*", "Contact.qualified", true},
		{"*", "Deal.closing", true},
		{"Contact.*", "Contact.qualified", true},
		{"Contact.*", "Contact.creating", true},
		{"Contact.*", "Deal.qualified", false},
		{"*.qualified", "Contact.qualified", true},
		{"*.qualified", "Deal.qualified", true},
		{"*.qualified", "Contact.qualifying", false},
		{"Contact.qualified", "Contact.qualified", true},
		{"Contact.qualified", "Contact.qualify", false},
		{"Contact.qualified", "Deal.qualified", false},
	}

	for _, tc := range cases {
		p, err := compilePattern(tc.pattern)
		if err != nil {
			t.Fatalf("compilePattern(%q): %v", tc.pattern, err)
		}
		if got := p.matches(tc.qualifiedType); got != tc.want {
			t.Errorf("pattern %q vs %q = %v, want %v", tc.pattern, tc.qualifiedType, got, tc.want)
		}
	}
}

func TestCompilePatternRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "Contact", "Contact.", ".qualified", "a.b.c"} {
		if _, err := compilePattern(raw); err == nil {
			t.Errorf("compilePattern(%q) accepted, want error", raw)
		}
	}
}
