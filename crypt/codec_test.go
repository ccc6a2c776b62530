package crypt

import (
	"bytes"
	"crypto/cipher"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func testCodec(t *testing.T, spec string, keyBytes []byte) *Codec {
	t.Helper()
	alg, err := ParseAlgorithm(spec)
	if err != nil {
		t.Fatalf("ParseAlgorithm(%q): %v", spec, err)
	}
	key, err := NewKey(keyBytes, alg.Name())
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	c, err := NewCodec(alg, key, "")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func seqBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func frameOf(iv, ct []byte) []byte {
	return append(append([]byte(nil), iv...), ct...)
}

func TestCodecRoundTrip(t *testing.T) {
	c := testCodec(t, DefaultAlgorithm, seqBytes(16))
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32, 1000} {
		plaintext := seqBytes(n)
		iv, ct, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%d bytes): %v", n, err)
		}
		if len(iv) != 16 {
			t.Fatalf("iv length = %d, want 16", len(iv))
		}
		if len(ct) < 16 || len(ct)%16 != 0 {
			t.Fatalf("ciphertext length = %d for a %d byte plaintext", len(ct), n)
		}
		back, err := c.Decrypt(frameOf(iv, ct))
		if err != nil {
			t.Fatalf("Decrypt(%d bytes): %v", n, err)
		}
		if !bytes.Equal(back, plaintext) {
			t.Fatalf("round trip mismatch at %d bytes", n)
		}
	}
}

func TestCodecRoundTripSuites(t *testing.T) {
	suites := []struct {
		spec string
		key  []byte
		pt   []byte
	}{
		{"AES/OFB", seqBytes(24), []byte("stream mode leaves length alone")},
		{"AES/CFB/NoPadding", seqBytes(32), seqBytes(10)},
		{"AES/CBC/NoPadding", seqBytes(16), seqBytes(32)},
		{"DES/CBC/PKCS5Padding", seqBytes(8), seqBytes(21)},
		{"DESede/CBC/PKCS5Padding", seqBytes(24), seqBytes(40)},
		{"Blowfish/CBC/PKCS5Padding", seqBytes(16), seqBytes(33)},
		{"Twofish/OFB", seqBytes(16), seqBytes(7)},
		{"CAST5/CFB", seqBytes(16), seqBytes(19)},
		{"TEA/CBC/PKCS5Padding", seqBytes(16), seqBytes(9)},
		{"XTEA/CBC/PKCS5Padding", seqBytes(16), seqBytes(24)},
		{"SM4/CBC/PKCS5Padding", seqBytes(16), seqBytes(100)},
	}
	for _, s := range suites {
		c := testCodec(t, s.spec, s.key)
		iv, ct, err := c.Encrypt(s.pt)
		if err != nil {
			t.Fatalf("%s: Encrypt: %v", s.spec, err)
		}
		if c.Algorithm().Mode() != ModeCBC && len(ct) != len(s.pt) {
			t.Fatalf("%s: stream mode changed length %d -> %d", s.spec, len(s.pt), len(ct))
		}
		back, err := c.Decrypt(frameOf(iv, ct))
		if err != nil {
			t.Fatalf("%s: Decrypt: %v", s.spec, err)
		}
		if !bytes.Equal(back, s.pt) {
			t.Fatalf("%s: round trip mismatch", s.spec)
		}
	}
}

func TestCodecEmptyPlaintext(t *testing.T) {
	for _, spec := range []string{"AES/CBC/PKCS5Padding", "AES/OFB", "AES/CFB"} {
		c := testCodec(t, spec, seqBytes(16))
		iv, ct, err := c.Encrypt(nil)
		if err != nil {
			t.Fatalf("%s: Encrypt(nil): %v", spec, err)
		}
		if c.Algorithm().Mode() == ModeCBC {
			if len(ct) != 16 {
				t.Fatalf("%s: ciphertext = %d bytes, want one padded block", spec, len(ct))
			}
		} else if len(ct) != 0 {
			t.Fatalf("%s: ciphertext = %d bytes, want 0", spec, len(ct))
		}
		back, err := c.Decrypt(frameOf(iv, ct))
		if err != nil {
			t.Fatalf("%s: Decrypt: %v", spec, err)
		}
		if len(back) != 0 {
			t.Fatalf("%s: decrypted %d bytes, want 0", spec, len(back))
		}
	}
}

func TestCodecIVFreshness(t *testing.T) {
	c := testCodec(t, DefaultAlgorithm, seqBytes(16))
	plaintext := []byte("same plaintext every time")
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		iv, _, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if seen[string(iv)] {
			t.Fatalf("IV repeated after %d encryptions", i)
		}
		seen[string(iv)] = true
	}
}

func TestCodecTamperedFrame(t *testing.T) {
	c := testCodec(t, DefaultAlgorithm, seqBytes(16))
	plaintext := seqBytes(64)
	iv, ct, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	frame := frameOf(iv, ct)
	frame[len(frame)-1] ^= 0xff
	// CBC carries no authentication tag: corruption must either trip the
	// padding check or come back as different bytes, never as the original.
	back, err := c.Decrypt(frame)
	if err == nil && bytes.Equal(back, plaintext) {
		t.Fatalf("tampered frame decrypted to the original plaintext")
	}
}

func TestCodecWrongKey(t *testing.T) {
	enc := testCodec(t, DefaultAlgorithm, seqBytes(16))
	otherKey := seqBytes(16)
	otherKey[0] ^= 0xff
	dec := testCodec(t, DefaultAlgorithm, otherKey)

	plaintext := []byte("only holders of the shared key may read this")
	iv, ct, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	back, err := dec.Decrypt(frameOf(iv, ct))
	if err == nil && bytes.Equal(back, plaintext) {
		t.Fatalf("wrong key recovered the plaintext")
	}
}

func TestCodecShortFrame(t *testing.T) {
	c := testCodec(t, DefaultAlgorithm, seqBytes(16))
	for _, n := range []int{0, 1, 15} {
		if _, err := c.Decrypt(seqBytes(n)); !errors.Is(err, ErrFrameTooShort) {
			t.Fatalf("Decrypt(%d bytes) = %v, want ErrFrameTooShort", n, err)
		}
	}
}

func TestCodecNoPaddingAlignment(t *testing.T) {
	c := testCodec(t, "AES/CBC/NoPadding", seqBytes(16))
	if _, _, err := c.Encrypt(seqBytes(17)); !errors.Is(err, ErrEncryptionFailed) {
		t.Fatalf("err = %v, want ErrEncryptionFailed", err)
	}
}

func TestCodecLazyKeyValidation(t *testing.T) {
	// 10 bytes is not a valid AES key size, but the codec only finds out
	// when the first transform is built.
	c := testCodec(t, DefaultAlgorithm, seqBytes(10))
	if _, _, err := c.Encrypt([]byte("x")); !errors.Is(err, ErrEncryptionFailed) {
		t.Fatalf("Encrypt = %v, want ErrEncryptionFailed", err)
	}
	if _, err := c.Decrypt(seqBytes(32)); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("Decrypt = %v, want ErrDecryptionFailed", err)
	}
}

func TestCodecUnknownAlgorithm(t *testing.T) {
	c := testCodec(t, "NOPE/CBC/PKCS5Padding", seqBytes(16))
	if _, _, err := c.Encrypt([]byte("x")); !errors.Is(err, ErrEncryptionFailed) {
		t.Fatalf("err = %v, want ErrEncryptionFailed", err)
	}
}

func TestCodecRequiresKey(t *testing.T) {
	alg, err := ParseAlgorithm(DefaultAlgorithm)
	if err != nil {
		t.Fatalf("ParseAlgorithm: %v", err)
	}
	if _, err := NewCodec(alg, Key{}, ""); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("NewCodec = %v, want ErrKeyRequired", err)
	}
}

func TestCodecUnknownProvider(t *testing.T) {
	alg, err := ParseAlgorithm(DefaultAlgorithm)
	if err != nil {
		t.Fatalf("ParseAlgorithm: %v", err)
	}
	key, err := NewKey(seqBytes(16), "AES")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if _, err := NewCodec(alg, key, "no-such-provider"); !errors.Is(err, ErrProviderUnknown) {
		t.Fatalf("NewCodec = %v, want ErrProviderUnknown", err)
	}
}

// countingProvider wraps the builtin provider and counts Block calls, which
// equals the number of transforms ever built.
type countingProvider struct {
	calls atomic.Int32
}

func (p *countingProvider) Block(key Key) (cipher.Block, error) {
	p.calls.Add(1)
	return builtin{}.Block(key)
}

func TestCodecReusesTransforms(t *testing.T) {
	prov := &countingProvider{}
	RegisterProvider("counting", prov)
	listed := false
	for _, name := range Providers() {
		if name == "counting" {
			listed = true
		}
	}
	if !listed {
		t.Fatalf("Providers does not list the registered provider")
	}

	alg, err := ParseAlgorithm(DefaultAlgorithm)
	if err != nil {
		t.Fatalf("ParseAlgorithm: %v", err)
	}
	key, err := NewKey(seqBytes(16), "AES")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	c, err := NewCodec(alg, key, "counting")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	for i := 0; i < 50; i++ {
		iv, ct, err := c.Encrypt([]byte("reuse me"))
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if _, err := c.Decrypt(frameOf(iv, ct)); err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
	}
	if got := prov.calls.Load(); got != 1 {
		t.Fatalf("built %d transforms for sequential traffic, want 1", got)
	}

	c.Close()
	if c.transforms.size() != 0 || c.randoms.size() != 0 {
		t.Fatalf("Close left idle handles pooled")
	}
	if _, _, err := c.Encrypt([]byte("after close")); err != nil {
		t.Fatalf("Encrypt after Close: %v", err)
	}
	if got := prov.calls.Load(); got != 2 {
		t.Fatalf("built %d transforms after Close, want 2", got)
	}
}

func TestCodecConcurrent(t *testing.T) {
	c := testCodec(t, DefaultAlgorithm, seqBytes(32))
	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				plaintext := bytes.Repeat([]byte{seed}, 40+j%17)
				iv, ct, err := c.Encrypt(plaintext)
				if err != nil {
					t.Errorf("Encrypt: %v", err)
					return
				}
				back, err := c.Decrypt(frameOf(iv, ct))
				if err != nil {
					t.Errorf("Decrypt: %v", err)
					return
				}
				if !bytes.Equal(back, plaintext) {
					t.Errorf("round trip mismatch for worker %d", seed)
					return
				}
			}
		}(byte(i + 1))
	}
	wg.Wait()
}

func BenchmarkCodecEncrypt(b *testing.B) {
	alg, err := ParseAlgorithm(DefaultAlgorithm)
	if err != nil {
		b.Fatalf("ParseAlgorithm: %v", err)
	}
	key, err := NewKey(seqBytes(32), "AES")
	if err != nil {
		b.Fatalf("NewKey: %v", err)
	}
	c, err := NewCodec(alg, key, "")
	if err != nil {
		b.Fatalf("NewCodec: %v", err)
	}
	payload := seqBytes(1024)
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := c.Encrypt(payload); err != nil {
			b.Fatalf("Encrypt: %v", err)
		}
	}
}

func BenchmarkCodecDecrypt(b *testing.B) {
	alg, err := ParseAlgorithm(DefaultAlgorithm)
	if err != nil {
		b.Fatalf("ParseAlgorithm: %v", err)
	}
	key, err := NewKey(seqBytes(32), "AES")
	if err != nil {
		b.Fatalf("NewKey: %v", err)
	}
	c, err := NewCodec(alg, key, "")
	if err != nil {
		b.Fatalf("NewCodec: %v", err)
	}
	payload := seqBytes(1024)
	iv, ct, err := c.Encrypt(payload)
	if err != nil {
		b.Fatalf("Encrypt: %v", err)
	}
	frame := frameOf(iv, ct)
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Decrypt(frame); err != nil {
			b.Fatalf("Decrypt: %v", err)
		}
	}
}

func BenchmarkCodecEncryptParallel(b *testing.B) {
	alg, err := ParseAlgorithm(DefaultAlgorithm)
	if err != nil {
		b.Fatalf("ParseAlgorithm: %v", err)
	}
	key, err := NewKey(seqBytes(32), "AES")
	if err != nil {
		b.Fatalf("NewKey: %v", err)
	}
	c, err := NewCodec(alg, key, "")
	if err != nil {
		b.Fatalf("NewCodec: %v", err)
	}
	payload := seqBytes(1024)
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, _, err := c.Encrypt(payload); err != nil {
				b.Fatalf("Encrypt: %v", err)
			}
		}
	})
}
