package ports

import "github.com/bft-labs/tickquery/internal/domain"

// Codec converts messages to and from their wire representation.
// Implementations must satisfy Decode(Encode(m)).Equal(m) for every valid m.
type Codec interface {
	// Name identifies the encoding (e.g., "protobuf").
	Name() string

	// Encode serializes a message.
	Encode(msg domain.Message) ([]byte, error)

	// Decode parses a message. Malformed input returns an error.
	Decode(data []byte) (domain.Message, error)
}
