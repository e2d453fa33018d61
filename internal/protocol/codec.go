package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Delimiter separates encoded messages in a stream. Compact JSON never
// contains a raw newline, so it cannot occur inside a message.
const Delimiter byte = '\n'

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrMissingTag   = errors.New("missing message tag")
	ErrUnknownTag   = errors.New("unknown message tag")
	ErrInvalidText  = errors.New("text is not valid utf-8")
)

// DecodeError reports a message that could not be decoded.
type DecodeError struct {
	Tag Tag
	Err error
}

func (e *DecodeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("decoding %s message: %s", e.Tag, e.Err)
	}
	return fmt.Sprintf("decoding message: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type envelope struct {
	T Tag             `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

var decoders = map[Tag]func(json.RawMessage) (Message, error){
	TagLogin:        decodeAs[Login],
	TagSay:          decodeAs[Say],
	TagKill:         decodeAs[Kill],
	TagMap:          decodeAs[Map],
	TagWorld:        decodeAs[World],
	TagEntity:       decodeAs[Entity],
	TagRemoveEntity: decodeAs[RemoveEntity],
	TagMove:         decodeAs[Move],
	TagRename:       decodeAs[Rename],
	TagLook:         decodeAs[Look],
	TagZones:        decodeAs[Zones],
	TagTeleport:     decodeAs[Teleport],
	TagHelp:         decodeAs[Help],
	TagLogout:       decodeAs[Logout],
}

// Encode returns the wire representation of m without a delimiter.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("encoding nil message")
	}
	if _, ok := decoders[m.Tag()]; !ok {
		return nil, fmt.Errorf("encoding %s message: %w", m.Tag(), ErrUnknownTag)
	}
	for _, text := range textFields(m) {
		if !utf8.ValidString(text) {
			return nil, fmt.Errorf("encoding %s message: %w", m.Tag(), ErrInvalidText)
		}
	}

	p, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s message: %w", m.Tag(), err)
	}

	return json.Marshal(envelope{T: m.Tag(), P: p})
}

// textFields returns the free text carried by m. JSON would silently replace
// invalid utf-8 in these with U+FFFD.
func textFields(m Message) []string {
	switch m := m.(type) {
	case Login:
		return []string{m.Username, m.Password}
	case Say:
		return []string{m.Text}
	case Kill:
		return []string{m.Reason}
	case Rename:
		return []string{m.Name}
	case Teleport:
		return []string{m.Zone}
	default:
		return nil
	}
}

// Frame encodes m and appends the delimiter.
func Frame(m Message) ([]byte, error) {
	b, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return append(b, Delimiter), nil
}

// Decode parses a single encoded message. All failures are *DecodeError.
func Decode(b []byte) (Message, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, &DecodeError{Err: ErrEmptyMessage}
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if env.T == "" {
		return nil, &DecodeError{Err: ErrMissingTag}
	}

	decode, ok := decoders[env.T]
	if !ok {
		return nil, &DecodeError{Tag: env.T, Err: ErrUnknownTag}
	}

	m, err := decode(env.P)
	if err != nil {
		return nil, &DecodeError{Tag: env.T, Err: err}
	}

	return m, nil
}

func decodeAs[T Message](p json.RawMessage) (Message, error) {
	var m T
	if len(p) == 0 {
		return m, nil
	}

	dec := json.NewDecoder(bytes.NewReader(p))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
