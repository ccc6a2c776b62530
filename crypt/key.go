package crypt

import (
	"errors"
	"strings"
)

var ErrKeyRequired = errors.New("crypt: encryption key required")

// Key holds symmetric key material bound to a cipher algorithm name. The
// bytes are copied in and copied out, so no caller can alias the internal
// state. Key length is not checked here; the cipher constructor rejects
// sizes the algorithm cannot use when the first transform is built.
type Key struct {
	raw       []byte
	algorithm string
}

// NewKey builds a key from raw bytes for the named algorithm.
func NewKey(raw []byte, algorithm string) (Key, error) {
	if len(raw) == 0 {
		return Key{}, ErrKeyRequired
	}
	return Key{raw: append([]byte(nil), raw...), algorithm: algorithm}, nil
}

// ParseKeyHex builds a key from hex-encoded material, ignoring surrounding
// whitespace.
func ParseKeyHex(s, algorithm string) (Key, error) {
	raw, err := FromHex(strings.TrimSpace(s))
	if err != nil {
		return Key{}, err
	}
	return NewKey(raw, algorithm)
}

// Bytes returns a copy of the key material.
func (k Key) Bytes() []byte {
	return append([]byte(nil), k.raw...)
}

// Hex returns the key material as a hex string.
func (k Key) Hex() string { return ToHex(k.raw) }

// Algorithm returns the cipher algorithm name the key is bound to.
func (k Key) Algorithm() string { return k.algorithm }

// IsZero reports whether the key holds no material.
func (k Key) IsZero() bool { return len(k.raw) == 0 }
