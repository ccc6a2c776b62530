package channel

import "bytes"

// Member identifies one destination in the group. How members are
// discovered and tracked lives outside this package; a Member is just a
// display name and a transport address.
type Member struct {
	Name string
	Addr string
}

// Message is a single unit of group communication. It owns its body: the
// constructor copies the initial payload, and pipeline stages rewrite the
// body in place with Reset and Append.
type Message struct {
	// Src is the transport address the message arrived from. It is empty
	// on outbound messages.
	Src string

	buf bytes.Buffer
}

// NewMessage builds a message holding a copy of payload.
func NewMessage(payload []byte) *Message {
	m := &Message{}
	m.buf.Write(payload)
	return m
}

// Bytes returns the current message body. The slice is only valid until
// the next Reset or Append.
func (m *Message) Bytes() []byte { return m.buf.Bytes() }

// Len returns the current body length.
func (m *Message) Len() int { return m.buf.Len() }

// Reset clears the body.
func (m *Message) Reset() { m.buf.Reset() }

// Append adds p to the body.
func (m *Message) Append(p []byte) { m.buf.Write(p) }
