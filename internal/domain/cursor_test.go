package domain

import "testing"

func TestCursorRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 3, 42, 100000} {
		token := EncodeCursor(offset)
		if token == "" {
			t.Fatalf("EncodeCursor(%d) produced an empty token", offset)
		}
		if got := DecodeCursor(token); got != offset {
			t.Fatalf("DecodeCursor(EncodeCursor(%d)) = %d", offset, got)
		}
	}
}

func TestDecodeCursorMalformed(t *testing.T) {
	cases := []string{
		"",
		"not base64!!!",
		"bm90IGpzb24=",     // "not json"
		"eyJvZmZzZXQiOn0=", // truncated json
	}
	for _, token := range cases {
		if got := DecodeCursor(token); got != 0 {
			t.Errorf("DecodeCursor(%q) = %d, want 0", token, got)
		}
	}
}

func TestDecodeCursorNegativeOffset(t *testing.T) {
	token := EncodeCursor(-5)
	if got := DecodeCursor(token); got != 0 {
		t.Fatalf("negative offset should degrade to 0, got %d", got)
	}
}
