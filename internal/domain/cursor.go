package domain

import (
	"encoding/base64"

	jsoniter "github.com/json-iterator/go"
)

var cursorJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Cursor is the decoded form of an opaque pagination token. It is stateless;
// the token is base64-encoded JSON.
type Cursor struct {
	Offset int `json:"offset"`
}

// EncodeCursor produces an opaque token for the given offset.
func EncodeCursor(offset int) string {
	raw, err := cursorJSON.Marshal(Cursor{Offset: offset})
	if err != nil {
		// A struct of one int cannot fail to marshal.
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeCursor recovers the offset from a token. Decode failure is not an
// error: any malformed or negative input degrades to offset 0.
func DecodeCursor(token string) int {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0
	}
	var c Cursor
	if err := cursorJSON.Unmarshal(raw, &c); err != nil {
		return 0
	}
	if c.Offset < 0 {
		return 0
	}
	return c.Offset
}
