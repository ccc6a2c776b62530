package crypt

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultAlgorithm is the cipher suite used when nothing else is
// configured.
const DefaultAlgorithm = "AES/CBC/PKCS5Padding"

var (
	ErrAlgorithmFormat    = errors.New("crypt: algorithm must be specified as name/mode/padding")
	ErrModeUnsupported    = errors.New("crypt: unsupported cipher mode")
	ErrPaddingUnsupported = errors.New("crypt: unsupported padding")
)

// Mode is a block cipher mode of operation.
type Mode uint8

const (
	// ModeCBC chains each block through the previous ciphertext block and
	// requires padding.
	ModeCBC Mode = iota + 1
	// ModeOFB runs the block cipher as a synchronous stream cipher.
	ModeOFB
	// ModeCFB runs the block cipher as a self-synchronizing stream cipher.
	ModeCFB
)

func (m Mode) String() string {
	switch m {
	case ModeCBC:
		return "CBC"
	case ModeOFB:
		return "OFB"
	case ModeCFB:
		return "CFB"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Padding is a block padding scheme. Padding only applies to CBC; the
// stream modes carry plaintext length exactly.
type Padding uint8

const (
	// PaddingPKCS5 fills the final block with N bytes of value N.
	PaddingPKCS5 Padding = iota + 1
	// PaddingNone requires CBC plaintext to already be block aligned.
	PaddingNone
)

func (p Padding) String() string {
	switch p {
	case PaddingPKCS5:
		return "PKCS5Padding"
	case PaddingNone:
		return "NoPadding"
	default:
		return fmt.Sprintf("Padding(%d)", uint8(p))
	}
}

// Algorithm is a parsed cipher suite of the form "name/mode/padding", for
// example "AES/CBC/PKCS5Padding". Mode and padding tokens are matched case
// insensitively. The mode must be CBC, OFB or CFB; ECB is deliberately not
// on the list. An empty or missing mode defaults to CBC, an empty or
// missing padding segment to PKCS5. A bare name with no separator at all
// is rejected.
type Algorithm struct {
	spec    string
	name    string
	mode    Mode
	padding Padding
}

// ParseAlgorithm parses and validates a cipher suite specification.
func ParseAlgorithm(spec string) (Algorithm, error) {
	if !strings.Contains(spec, "/") {
		return Algorithm{}, fmt.Errorf("%w: %q", ErrAlgorithmFormat, spec)
	}
	parts := strings.Split(spec, "/")
	if len(parts) > 3 || parts[0] == "" {
		return Algorithm{}, fmt.Errorf("%w: %q", ErrAlgorithmFormat, spec)
	}

	mode := ModeCBC
	if len(parts) > 1 && parts[1] != "" {
		switch strings.ToUpper(parts[1]) {
		case "CBC":
			mode = ModeCBC
		case "OFB":
			mode = ModeOFB
		case "CFB":
			mode = ModeCFB
		default:
			return Algorithm{}, fmt.Errorf("%w: %q", ErrModeUnsupported, parts[1])
		}
	}

	padding := PaddingPKCS5
	if len(parts) > 2 && parts[2] != "" {
		switch strings.ToUpper(parts[2]) {
		case "PKCS5PADDING", "PKCS7PADDING":
			padding = PaddingPKCS5
		case "NOPADDING":
			padding = PaddingNone
		default:
			return Algorithm{}, fmt.Errorf("%w: %q", ErrPaddingUnsupported, parts[2])
		}
	}

	return Algorithm{spec: spec, name: parts[0], mode: mode, padding: padding}, nil
}

// Name returns the cipher algorithm name, for example "AES".
func (a Algorithm) Name() string { return a.name }

// Mode returns the mode of operation.
func (a Algorithm) Mode() Mode { return a.mode }

// Padding returns the padding scheme.
func (a Algorithm) Padding() Padding { return a.padding }

// String returns the specification the algorithm was parsed from.
func (a Algorithm) String() string { return a.spec }
