package channel

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/groupmesh/go-groupmesh/crypt"
)

// DefaultEncryptionAlgorithm is the cipher suite used when none is
// configured.
const DefaultEncryptionAlgorithm = crypt.DefaultAlgorithm

var ErrNotStarted = errors.New("channel: encrypt interceptor not started")

// EncryptInterceptor encrypts every outbound message body and decrypts
// every inbound one, transparently to the stages around it. On the wire
// each body is the random per-message IV followed by the ciphertext.
//
// All group members must share the same key and cipher suite. Configure
// before Start; the configuration is immutable while running. An outbound
// failure aborts the send and propagates to the caller. An inbound body
// that does not decrypt is logged and dropped, since receipt is one way
// and there is nobody to hand the error to.
type EncryptInterceptor struct {
	Base

	algorithm string
	key       []byte
	provider  string
	logger    *log.Logger

	codec *crypt.Codec
}

// NewEncryptInterceptor returns an interceptor with the default cipher
// suite and no key. A key must be configured before Start.
func NewEncryptInterceptor() *EncryptInterceptor {
	return &EncryptInterceptor{
		algorithm: DefaultEncryptionAlgorithm,
		logger:    log.Default(),
	}
}

// SetEncryptionAlgorithm configures the cipher suite, validating it
// immediately.
func (e *EncryptInterceptor) SetEncryptionAlgorithm(spec string) error {
	if _, err := crypt.ParseAlgorithm(spec); err != nil {
		return err
	}
	e.algorithm = spec
	return nil
}

// EncryptionAlgorithm returns the configured cipher suite.
func (e *EncryptInterceptor) EncryptionAlgorithm() string { return e.algorithm }

// SetEncryptionKey configures the shared key from raw bytes. The bytes
// are copied; passing nil clears the key.
func (e *EncryptInterceptor) SetEncryptionKey(raw []byte) {
	if raw == nil {
		e.key = nil
		return
	}
	e.key = append([]byte(nil), raw...)
}

// SetEncryptionKeyHex configures the shared key from hex-encoded
// material, ignoring surrounding whitespace.
func (e *EncryptInterceptor) SetEncryptionKeyHex(s string) error {
	raw, err := crypt.FromHex(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	e.key = raw
	return nil
}

// EncryptionKey returns a copy of the configured key.
func (e *EncryptInterceptor) EncryptionKey() []byte {
	if e.key == nil {
		return nil
	}
	return append([]byte(nil), e.key...)
}

// EncryptionKeyHex returns the configured key as a hex string.
func (e *EncryptInterceptor) EncryptionKeyHex() string { return crypt.ToHex(e.key) }

// SetProviderName selects a registered cipher provider; the empty string
// selects the builtin one.
func (e *EncryptInterceptor) SetProviderName(name string) { e.provider = name }

// ProviderName returns the configured cipher provider name.
func (e *EncryptInterceptor) ProviderName() string { return e.provider }

// SetLogger replaces the logger that reports dropped inbound messages.
func (e *EncryptInterceptor) SetLogger(l *log.Logger) { e.logger = l }

// Start builds the codec when the send service is covered, then cascades.
// Starting without a configured key is an error.
func (e *EncryptInterceptor) Start(svc Service) error {
	if svc&ServiceSend != 0 {
		if len(e.key) == 0 {
			return crypt.ErrKeyRequired
		}
		alg, err := crypt.ParseAlgorithm(e.algorithm)
		if err != nil {
			return err
		}
		key, err := crypt.NewKey(e.key, alg.Name())
		if err != nil {
			return err
		}
		codec, err := crypt.NewCodec(alg, key, e.provider)
		if err != nil {
			return err
		}
		e.codec = codec
	}
	return e.Base.Start(svc)
}

// Stop discards the codec and its pooled cipher state when the send
// service is covered, then cascades. A stopped interceptor can be started
// again.
func (e *EncryptInterceptor) Stop(svc Service) error {
	if svc&ServiceSend != 0 && e.codec != nil {
		e.codec.Close()
		e.codec = nil
	}
	return e.Base.Stop(svc)
}

// SendMessage encrypts the message body in place and hands the message to
// the next stage. On failure the message is not transmitted.
func (e *EncryptInterceptor) SendMessage(ctx context.Context, dest []Member, msg *Message) error {
	codec := e.codec
	if codec == nil {
		return ErrNotStarted
	}
	iv, ciphertext, err := codec.Encrypt(msg.Bytes())
	if err != nil {
		return err
	}
	msg.Reset()
	msg.Append(iv)
	msg.Append(ciphertext)
	return e.Base.SendMessage(ctx, dest, msg)
}

// MessageReceived decrypts the message body in place and hands the
// message up the chain. A body that cannot be decrypted is logged and
// dropped.
func (e *EncryptInterceptor) MessageReceived(msg *Message) {
	codec := e.codec
	if codec == nil {
		e.logger.Printf("channel: dropping message from %q: %v", msg.Src, ErrNotStarted)
		return
	}
	plaintext, err := codec.Decrypt(msg.Bytes())
	if err != nil {
		e.logger.Printf("channel: dropping undecryptable message from %q: %v", msg.Src, err)
		return
	}
	msg.Reset()
	msg.Append(plaintext)
	e.Base.MessageReceived(msg)
}
