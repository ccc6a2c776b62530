package crypt

import (
	"crypto/cipher"
	"errors"
	"fmt"
)

// transform is one reusable encryption engine: the expanded key schedule
// for an algorithm/key pair plus scratch space for padding. A transform is
// not safe for concurrent use; the codec hands each one to a single holder
// at a time through its pool. Every call derives a fresh block mode from
// the key schedule and the IV, so no state survives from one operation
// into the next.
type transform struct {
	block   cipher.Block
	mode    Mode
	padding Padding
	scratch []byte
}

func newTransform(p Provider, key Key, mode Mode, padding Padding) (*transform, error) {
	block, err := p.Block(key)
	if err != nil {
		return nil, err
	}
	return &transform{block: block, mode: mode, padding: padding}, nil
}

func (t *transform) blockSize() int { return t.block.BlockSize() }

// encrypt encrypts plaintext under iv into a freshly allocated buffer
// owned by the caller.
func (t *transform) encrypt(iv, plaintext []byte) ([]byte, error) {
	switch t.mode {
	case ModeCBC:
		padded, err := t.pad(plaintext)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(padded))
		cipher.NewCBCEncrypter(t.block, iv).CryptBlocks(out, padded)
		return out, nil
	case ModeOFB:
		out := make([]byte, len(plaintext))
		cipher.NewOFB(t.block, iv).XORKeyStream(out, plaintext)
		return out, nil
	case ModeCFB:
		out := make([]byte, len(plaintext))
		cipher.NewCFBEncrypter(t.block, iv).XORKeyStream(out, plaintext)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrModeUnsupported, t.mode)
	}
}

// decrypt reverses encrypt into a freshly allocated buffer.
func (t *transform) decrypt(iv, ciphertext []byte) ([]byte, error) {
	switch t.mode {
	case ModeCBC:
		if len(ciphertext)%t.block.BlockSize() != 0 {
			return nil, errors.New("ciphertext is not a multiple of the block size")
		}
		out := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(t.block, iv).CryptBlocks(out, ciphertext)
		return t.unpad(out)
	case ModeOFB:
		out := make([]byte, len(ciphertext))
		cipher.NewOFB(t.block, iv).XORKeyStream(out, ciphertext)
		return out, nil
	case ModeCFB:
		out := make([]byte, len(ciphertext))
		cipher.NewCFBDecrypter(t.block, iv).XORKeyStream(out, ciphertext)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrModeUnsupported, t.mode)
	}
}

// pad stages plaintext with padding applied. The scratch buffer is reused
// across calls.
func (t *transform) pad(plaintext []byte) ([]byte, error) {
	bs := t.block.BlockSize()
	switch t.padding {
	case PaddingNone:
		if len(plaintext)%bs != 0 {
			return nil, errors.New("plaintext is not a multiple of the block size and padding is disabled")
		}
		return plaintext, nil
	case PaddingPKCS5:
		n := bs - len(plaintext)%bs
		total := len(plaintext) + n
		if cap(t.scratch) < total {
			t.scratch = make([]byte, total)
		}
		t.scratch = t.scratch[:total]
		copy(t.scratch, plaintext)
		for i := len(plaintext); i < total; i++ {
			t.scratch[i] = byte(n)
		}
		return t.scratch, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrPaddingUnsupported, t.padding)
	}
}

func (t *transform) unpad(b []byte) ([]byte, error) {
	switch t.padding {
	case PaddingNone:
		return b, nil
	case PaddingPKCS5:
		bs := t.block.BlockSize()
		if len(b) == 0 || len(b)%bs != 0 {
			return nil, errors.New("invalid padded length")
		}
		n := int(b[len(b)-1])
		if n == 0 || n > bs {
			return nil, errors.New("invalid padding")
		}
		for _, c := range b[len(b)-n:] {
			if int(c) != n {
				return nil, errors.New("invalid padding")
			}
		}
		return b[:len(b)-n], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrPaddingUnsupported, t.padding)
	}
}
