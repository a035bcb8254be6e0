package codec

import (
	"strings"

	"github.com/yanun0323/errors"

	"main/internal/model/enum"
	"main/pkg/exception"
)

// The exchange protocol is a property-list: one key=value pair per line,
// newline terminated. Queue messages carry a leading type line as the
// dispatch discriminator; the market-price topic payload is a bare list.

const typeKey = "type"

// Envelope is a decoded protocol message.
type Envelope struct {
	Type   enum.MessageType
	fields map[string]string
	keys   []string
}

// NewEnvelope starts an outbound message of the given type.
func NewEnvelope(t enum.MessageType) *Envelope {
	e := &Envelope{
		Type:   t,
		fields: make(map[string]string),
	}
	e.Set(typeKey, t.String())
	return e
}

// Set adds a field, keeping first-set encode order. Keys must not contain
// '=' and values must not contain newlines; both are rejected on encode.
func (e *Envelope) Set(key, value string) *Envelope {
	if _, ok := e.fields[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.fields[key] = value
	return e
}

// Get returns a field value.
func (e *Envelope) Get(key string) (string, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// Require returns a field value or an invalid-payload error naming the key.
func (e *Envelope) Require(key string) (string, error) {
	v, ok := e.fields[key]
	if !ok {
		return "", errors.Wrap(exception.ErrInvalidPayload, "missing field").With("key", key)
	}
	return v, nil
}

// Encode renders the message as property-list bytes.
func (e *Envelope) Encode() ([]byte, error) {
	var sb strings.Builder
	for _, key := range e.keys {
		value := e.fields[key]
		if strings.ContainsAny(key, "=\n") || strings.Contains(value, "\n") {
			return nil, errors.Wrap(exception.ErrInvalidPayload, "unencodable field").With("key", key)
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(value)
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

// ParseEnvelope decodes a queue message and resolves its type line.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	e, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	raw, ok := e.fields[typeKey]
	if !ok {
		return nil, errors.Wrap(exception.ErrInvalidPayload, "missing type line")
	}
	t, ok := enum.ParseMessageType(raw)
	if !ok {
		return nil, errors.Wrap(exception.ErrUnknownMessageType, "parse envelope").With("type", raw)
	}
	e.Type = t
	return e, nil
}

// parseFields decodes key=value lines without requiring a type line.
func parseFields(payload []byte) (*Envelope, error) {
	if len(payload) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidPayload, "empty payload")
	}
	e := &Envelope{fields: make(map[string]string)}
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			return nil, errors.Wrap(exception.ErrInvalidPayload, "malformed line").With("line", line)
		}
		e.Set(key, value)
	}
	if len(e.fields) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidPayload, "no fields")
	}
	return e, nil
}
