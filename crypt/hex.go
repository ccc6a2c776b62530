package crypt

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrHexLength = errors.New("crypt: hex value must have an even number of digits")
	ErrHexDigit  = errors.New("crypt: invalid hex digit")
)

// FromHex decodes a hexadecimal string. Upper and lower case digits are
// accepted. An odd number of digits and a non-hex character are reported
// as distinct errors.
func FromHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: %d digits", ErrHexLength, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		var inv hex.InvalidByteError
		if errors.As(err, &inv) {
			return nil, fmt.Errorf("%w: %q", ErrHexDigit, rune(inv))
		}
		return nil, err
	}
	return b, nil
}

// ToHex encodes bytes as a lower-case hexadecimal string.
func ToHex(b []byte) string {
	return hex.EncodeToString(b)
}
