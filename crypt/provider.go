package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tjfoc/gmsm/sm4"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/tea"
	"golang.org/x/crypto/twofish"
	"golang.org/x/crypto/xtea"
)

var (
	ErrAlgorithmUnknown = errors.New("crypt: unknown cipher algorithm")
	ErrProviderUnknown  = errors.New("crypt: unknown cipher provider")
)

// Provider constructs block ciphers for the algorithm names it implements.
type Provider interface {
	Block(key Key) (cipher.Block, error)
}

var (
	providersMu sync.RWMutex
	providers   = map[string]Provider{}
)

// RegisterProvider makes a cipher provider available to NewCodec under the
// given name. If RegisterProvider is called twice with the same name or if
// p is nil, it panics.
func RegisterProvider(name string, p Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	if p == nil {
		panic("crypt: RegisterProvider with nil provider")
	}
	if _, dup := providers[name]; dup {
		panic("crypt: RegisterProvider called twice for provider " + name)
	}
	providers[name] = p
}

// Providers returns the sorted names of all registered providers.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveProvider(name string) (Provider, error) {
	if name == "" {
		return builtin{}, nil
	}
	providersMu.RLock()
	p, ok := providers[name]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderUnknown, name)
	}
	return p, nil
}

// builtin implements the default algorithm set. Algorithm names are
// matched case insensitively.
type builtin struct{}

func (builtin) Block(key Key) (cipher.Block, error) {
	raw := key.Bytes()
	switch strings.ToUpper(key.Algorithm()) {
	case "AES":
		return aes.NewCipher(raw)
	case "DES":
		return des.NewCipher(raw)
	case "DESEDE", "3DES":
		return des.NewTripleDESCipher(raw)
	case "BLOWFISH":
		return blowfish.NewCipher(raw)
	case "TWOFISH":
		return twofish.NewCipher(raw)
	case "CAST5":
		return cast5.NewCipher(raw)
	case "TEA":
		return tea.NewCipher(raw)
	case "XTEA":
		return xtea.NewCipher(raw)
	case "SM4":
		return sm4.NewCipher(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrAlgorithmUnknown, key.Algorithm())
	}
}
