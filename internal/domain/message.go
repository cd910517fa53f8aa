package domain

import "time"

// RootEntityPath is the unscoped entity path.
const RootEntityPath = "/"

// Header carries the metadata attached to every message.
type Header struct {
	// Timestamp is the wall-clock time captured when the message was built.
	Timestamp time.Time

	// ReferenceID correlates the message to a prior request.
	// Zero means there is nothing to correlate to.
	ReferenceID uint64

	// EntityPath is a slash-delimited logical address of the message origin.
	EntityPath string
}

// Message is the structured value sent on every tick and decoded from every
// successful reply.
type Message struct {
	Header Header
	Body   string
}

// NewMessage builds the message for one tick.
// The timestamp is stored in UTC without a monotonic reading so it survives
// an encode/decode round trip unchanged. An empty entity path becomes "/".
func NewMessage(now time.Time, entityPath, body string) Message {
	if entityPath == "" {
		entityPath = RootEntityPath
	}
	return Message{
		Header: Header{
			Timestamp:   now.Round(0).UTC(),
			ReferenceID: 0,
			EntityPath:  entityPath,
		},
		Body: body,
	}
}

// Equal reports whether m and other carry the same header and body.
// Timestamps are compared as instants.
func (m Message) Equal(other Message) bool {
	return m.Header.Timestamp.Equal(other.Header.Timestamp) &&
		m.Header.ReferenceID == other.Header.ReferenceID &&
		m.Header.EntityPath == other.Header.EntityPath &&
		m.Body == other.Body
}
