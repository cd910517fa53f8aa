package domain

import (
	"fmt"
	"unicode/utf8"
)

// ReplyKind tells a successful reply from a failed one.
type ReplyKind uint8

const (
	ReplySuccess ReplyKind = iota
	ReplyFailure
)

// String returns a human-readable representation of the kind.
func (k ReplyKind) String() string {
	switch k {
	case ReplySuccess:
		return "success"
	case ReplyFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Reply is one answer streamed back for a query.
// A success carries an encoded Message; a failure carries a diagnostic payload
// produced by the remote side.
type Reply struct {
	kind    ReplyKind
	payload []byte
}

// Success returns a reply carrying an encoded message.
func Success(payload []byte) Reply {
	return Reply{kind: ReplySuccess, payload: payload}
}

// Failure returns a reply carrying a remote diagnostic payload.
func Failure(payload []byte) Reply {
	return Reply{kind: ReplyFailure, payload: payload}
}

// Kind returns the reply kind.
func (r Reply) Kind() ReplyKind {
	return r.kind
}

// IsSuccess returns true if the remote side answered successfully.
func (r Reply) IsSuccess() bool {
	return r.kind == ReplySuccess
}

// Payload returns the encoded message of a successful reply.
// It returns nil for failures.
func (r Reply) Payload() []byte {
	if r.kind != ReplySuccess {
		return nil
	}
	return r.payload
}

// ErrorPayload returns the raw diagnostic payload of a failed reply.
// It returns nil for successes.
func (r Reply) ErrorPayload() []byte {
	if r.kind != ReplyFailure {
		return nil
	}
	return r.payload
}

// ErrorText interprets the diagnostic payload as text.
// It fails when the payload is not valid UTF-8.
func (r Reply) ErrorText() (string, error) {
	p := r.ErrorPayload()
	if !utf8.Valid(p) {
		return "", fmt.Errorf("reply: error payload is not valid UTF-8 (%d bytes)", len(p))
	}
	return string(p), nil
}
