package wire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// ErrUnknownType is returned by Decode when the envelope carries no type
// discriminator; the middleman then fails the connection. A non-empty tag
// passes Decode and is left to the receiving node's dispatcher.
var ErrUnknownType = fmt.Errorf("wire: unknown message type")

// Encode serializes a single message (type + payload) into one newline-free
// JSON line. The caller's middleman is responsible for appending "\n".
func Encode(t Type, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload for %s: %w", t, err)
	}
	line, err := json.Marshal(Envelope{Type: t, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("wire: marshal envelope for %s: %w", t, err)
	}
	return line, nil
}

// Decode parses one line into its envelope. Callers then type-switch on
// Type and json.Unmarshal the Payload into the matching concrete struct.
func Decode(line []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrUnknownType
	}
	return env, nil
}

// Into unmarshals an envelope's payload into dst, a pointer to one of the
// concrete *Payload structs.
func (e Envelope) Into(dst any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, dst)
}

// NewLineReader returns a bufio.Scanner configured for newline-delimited JSON,
// bumping the default token size so large stock snapshots still fit on one
// line.
func NewLineReader(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 8*1024*1024)
	return sc
}
