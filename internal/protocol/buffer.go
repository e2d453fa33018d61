package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

// DefaultMaxMessageSize bounds the bytes buffered while waiting for a delimiter.
const DefaultMaxMessageSize = 1 << 20

var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// Buffer reassembles delimited messages from a byte stream.
type Buffer struct {
	data []byte
	max  int
}

// NewBuffer creates a Buffer. A max of zero or less disables the size limit.
func NewBuffer(max int) *Buffer {
	return &Buffer{max: max}
}

// Append adds received bytes. It fails once the undelimited tail grows past
// the size limit; the connection should be dropped at that point.
func (b *Buffer) Append(p []byte) error {
	b.data = append(b.data, p...)

	if b.max > 0 {
		tail := len(b.data) - (bytes.LastIndexByte(b.data, Delimiter) + 1)
		if tail > b.max {
			return fmt.Errorf("%d bytes without delimiter: %w", tail, ErrMessageTooLarge)
		}
	}
	return nil
}

// Drain decodes every complete message in arrival order and keeps the
// incomplete tail. Blank segments are skipped. On a decode failure the
// messages decoded so far are returned with the error, and the rest of the
// complete segments are dropped.
func (b *Buffer) Drain() ([]Message, error) {
	var msgs []Message
	rest := b.data
	defer func() {
		n := copy(b.data, rest)
		b.data = b.data[:n]
	}()

	for {
		i := bytes.IndexByte(rest, Delimiter)
		if i < 0 {
			return msgs, nil
		}

		segment := bytes.TrimSpace(rest[:i])
		rest = rest[i+1:]
		if len(segment) == 0 {
			continue
		}

		m, err := Decode(segment)
		if err != nil {
			if last := bytes.LastIndexByte(rest, Delimiter); last >= 0 {
				rest = rest[last+1:]
			}
			return msgs, err
		}
		msgs = append(msgs, m)
	}
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes returns the buffered remainder. It is only valid until the next call.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Feed is the stateless form of Append followed by Drain.
func Feed(remainder, received []byte) ([]Message, []byte, error) {
	b := &Buffer{data: make([]byte, 0, len(remainder)+len(received))}
	b.data = append(b.data, remainder...)
	b.data = append(b.data, received...)

	msgs, err := b.Drain()
	return msgs, b.data, err
}
