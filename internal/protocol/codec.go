package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message is implemented by every variant of every vocabulary.
type Message interface {
	// MessageType returns the wire "type" tag of the variant.
	MessageType() string
}

// Encode serializes a message as a flat JSON object with its "type" tag first.
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}
	return withType(m.MessageType(), body)
}

// withType splices the "type" member into an encoded JSON object.
func withType(typ string, body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: variant is not a JSON object", typ)
	}
	tag, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(tag) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	rest := bytes.TrimSpace(body[1:])
	if len(rest) > 0 && rest[0] != '}' {
		buf.WriteByte(',')
	}
	buf.Write(rest)
	return buf.Bytes(), nil
}

// PeekType returns the "type" tag of an encoded message without decoding the rest.
func PeekType(data []byte) (string, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Type == nil {
		return "", fmt.Errorf("missing type field")
	}
	return *head.Type, nil
}

// UnknownTypeError is returned when a well-formed message carries a type tag the
// vocabulary does not define.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// Decode decodes data using the constructor registered for its type tag.
// Constructors return pointers so the payload can be unmarshaled in place.
func Decode[T Message](data []byte, table map[string]func() T) (T, error) {
	var zero T
	typ, err := PeekType(data)
	if err != nil {
		return zero, fmt.Errorf("parse message: %w", err)
	}
	ctor, ok := table[typ]
	if !ok {
		return zero, &UnknownTypeError{Type: typ}
	}
	msg := ctor()
	if err := json.Unmarshal(data, msg); err != nil {
		return zero, fmt.Errorf("parse %s: %w", typ, err)
	}
	return msg, nil
}
