package crypt

import (
	"errors"
	"fmt"
)

var (
	ErrFrameTooShort    = errors.New("crypt: encrypted frame too short")
	ErrEncryptionFailed = errors.New("crypt: encryption failed")
	ErrDecryptionFailed = errors.New("crypt: decryption failed")
)

// Codec encrypts and decrypts message frames under a fixed cipher suite
// and key. On the wire a frame is the initialization vector followed
// directly by the ciphertext. There is no length prefix; the transport is
// expected to preserve message boundaries.
//
// A codec is safe for concurrent use. Cipher state and buffered randomness
// recycle through internal free lists: an acquired handle has exactly one
// holder, the lists grow on demand without ever blocking, and Close
// discards whatever sits idle.
type Codec struct {
	algorithm  Algorithm
	key        Key
	provider   Provider
	transforms *pool[*transform]
	randoms    *pool[*randomSource]
}

// NewCodec builds a codec for the parsed cipher suite and key. The
// provider name selects a registered Provider; the empty string selects
// the builtin one. Both pools start empty. The key length and the
// algorithm name are checked when the first transform is built, not here.
func NewCodec(algorithm Algorithm, key Key, providerName string) (*Codec, error) {
	if algorithm.mode == 0 {
		return nil, fmt.Errorf("%w: %q", ErrAlgorithmFormat, algorithm.String())
	}
	if key.IsZero() {
		return nil, ErrKeyRequired
	}
	p, err := resolveProvider(providerName)
	if err != nil {
		return nil, err
	}
	c := &Codec{algorithm: algorithm, key: key, provider: p}
	c.transforms = newPool(func() (*transform, error) {
		return newTransform(c.provider, c.key, c.algorithm.Mode(), c.algorithm.Padding())
	})
	c.randoms = newPool(func() (*randomSource, error) {
		return newRandomSource(), nil
	})
	return c, nil
}

// Algorithm returns the cipher suite the codec was built with.
func (c *Codec) Algorithm() Algorithm { return c.algorithm }

// Encrypt encrypts plaintext under a fresh random IV. The IV and the
// ciphertext come back as two separate buffers so the caller can frame
// them without another copy.
func (c *Codec) Encrypt(plaintext []byte) (iv, ciphertext []byte, err error) {
	t, err := c.transforms.acquire()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	defer c.transforms.release(t)

	r, err := c.randoms.acquire()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	defer c.randoms.release(r)

	iv = make([]byte, t.blockSize())
	if err := r.fill(iv); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	ciphertext, err = t.encrypt(iv, plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return iv, ciphertext, nil
}

// Decrypt splits a frame into IV and ciphertext and decrypts it. A frame
// shorter than one cipher block is rejected before any cipher work runs.
func (c *Codec) Decrypt(frame []byte) ([]byte, error) {
	t, err := c.transforms.acquire()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	defer c.transforms.release(t)

	bs := t.blockSize()
	if len(frame) < bs {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrFrameTooShort, len(frame), bs)
	}
	plaintext, err := t.decrypt(frame[:bs], frame[bs:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// Close discards all idle pooled state. The codec stays usable; the pools
// refill on demand.
func (c *Codec) Close() {
	c.transforms.drain()
	c.randoms.drain()
}
