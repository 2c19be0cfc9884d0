package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Input is a tool argument struct that can check its own cross-field rules.
type Input interface {
	Validate() error
}

// Decode strictly decodes raw into dst and validates it. Empty or null
// arguments decode as an empty object. Every failure is a *ValidationError.
func Decode(raw json.RawMessage, dst Input) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &ValidationError{Issues: []string{"arguments: unexpected trailing data"}}
	}
	return dst.Validate()
}
