// Package protobuf implements ports.Codec with the protobuf wire format.
//
// The layout matches the PlainText schema used by the remote endpoints:
//
//	message Header {
//	  google.protobuf.Timestamp timestamp = 1;
//	  int64 reference_id = 2;
//	  string entity_path = 3;
//	}
//
//	message PlainText {
//	  Header header = 1;
//	  string body = 2;
//	}
package protobuf

import (
	"fmt"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
)

// Field numbers of the PlainText schema.
const (
	fieldHeader protowire.Number = 1
	fieldBody   protowire.Number = 2

	fieldTimestamp   protowire.Number = 1
	fieldReferenceID protowire.Number = 2
	fieldEntityPath  protowire.Number = 3
)

// Error describes a failure to encode or decode one field.
type Error struct {
	Op    string
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("protobuf: %s %s: %v", e.Op, e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Codec encodes domain messages as PlainText protobuf messages.
type Codec struct{}

// NewCodec creates a protobuf codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Name returns "protobuf".
func (*Codec) Name() string {
	return "protobuf"
}

// Encode serializes msg. It fails only when the timestamp is outside the
// range protobuf timestamps can represent.
func (*Codec) Encode(msg domain.Message) ([]byte, error) {
	header, err := appendHeader(nil, msg.Header)
	if err != nil {
		return nil, err
	}

	b := make([]byte, 0, len(header)+len(msg.Body)+8)
	b = protowire.AppendTag(b, fieldHeader, protowire.BytesType)
	b = protowire.AppendBytes(b, header)
	if msg.Body != "" {
		b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
		b = protowire.AppendString(b, msg.Body)
	}
	return b, nil
}

func appendHeader(b []byte, h domain.Header) ([]byte, error) {
	ts := timestamppb.New(h.Timestamp)
	if err := ts.CheckValid(); err != nil {
		return nil, &Error{Op: "encode", Field: "header.timestamp", Err: err}
	}
	tsBytes, err := proto.Marshal(ts)
	if err != nil {
		return nil, &Error{Op: "encode", Field: "header.timestamp", Err: err}
	}

	b = protowire.AppendTag(b, fieldTimestamp, protowire.BytesType)
	b = protowire.AppendBytes(b, tsBytes)
	if h.ReferenceID != 0 {
		b = protowire.AppendTag(b, fieldReferenceID, protowire.VarintType)
		b = protowire.AppendVarint(b, h.ReferenceID)
	}
	if h.EntityPath != "" {
		b = protowire.AppendTag(b, fieldEntityPath, protowire.BytesType)
		b = protowire.AppendString(b, h.EntityPath)
	}
	return b, nil
}

// Decode parses a PlainText message. Unknown fields are skipped.
func (*Codec) Decode(data []byte) (domain.Message, error) {
	var msg domain.Message
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return domain.Message{}, &Error{Op: "decode", Field: "tag", Err: protowire.ParseError(n)}
		}
		data = data[n:]

		switch {
		case num == fieldHeader && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return domain.Message{}, &Error{Op: "decode", Field: "header", Err: protowire.ParseError(m)}
			}
			h, err := decodeHeader(v)
			if err != nil {
				return domain.Message{}, err
			}
			msg.Header = h
			n = m
		case num == fieldBody && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(data)
			if m < 0 {
				return domain.Message{}, &Error{Op: "decode", Field: "body", Err: protowire.ParseError(m)}
			}
			if !utf8.ValidString(v) {
				return domain.Message{}, &Error{Op: "decode", Field: "body", Err: errInvalidUTF8}
			}
			msg.Body = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return domain.Message{}, &Error{Op: "decode", Field: fmt.Sprintf("field %d", num), Err: protowire.ParseError(n)}
			}
		}
		data = data[n:]
	}
	return msg, nil
}

func decodeHeader(data []byte) (domain.Header, error) {
	var h domain.Header
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return domain.Header{}, &Error{Op: "decode", Field: "header tag", Err: protowire.ParseError(n)}
		}
		data = data[n:]

		switch {
		case num == fieldTimestamp && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return domain.Header{}, &Error{Op: "decode", Field: "header.timestamp", Err: protowire.ParseError(m)}
			}
			t, err := decodeTimestamp(v)
			if err != nil {
				return domain.Header{}, err
			}
			h.Timestamp = t
			n = m
		case num == fieldReferenceID && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return domain.Header{}, &Error{Op: "decode", Field: "header.reference_id", Err: protowire.ParseError(m)}
			}
			h.ReferenceID = v
			n = m
		case num == fieldEntityPath && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(data)
			if m < 0 {
				return domain.Header{}, &Error{Op: "decode", Field: "header.entity_path", Err: protowire.ParseError(m)}
			}
			if !utf8.ValidString(v) {
				return domain.Header{}, &Error{Op: "decode", Field: "header.entity_path", Err: errInvalidUTF8}
			}
			h.EntityPath = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return domain.Header{}, &Error{Op: "decode", Field: fmt.Sprintf("header field %d", num), Err: protowire.ParseError(n)}
			}
		}
		data = data[n:]
	}
	return h, nil
}

func decodeTimestamp(data []byte) (time.Time, error) {
	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(data, &ts); err != nil {
		return time.Time{}, &Error{Op: "decode", Field: "header.timestamp", Err: err}
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, &Error{Op: "decode", Field: "header.timestamp", Err: err}
	}
	return ts.AsTime(), nil
}

var errInvalidUTF8 = fmt.Errorf("string field contains invalid UTF-8")

var _ ports.Codec = (*Codec)(nil)
