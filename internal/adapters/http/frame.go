package http

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/tickquery/internal/domain"
)

// Frame kinds on the reply stream.
const (
	frameSuccess byte = 0
	frameFailure byte = 1
)

// MaxFrameSize bounds a single reply payload.
const MaxFrameSize = 16 << 20

// appendFrame appends one reply as kind | uvarint length | payload.
func appendFrame(b []byte, reply domain.Reply) []byte {
	kind, payload := frameSuccess, reply.Payload()
	if !reply.IsSuccess() {
		kind, payload = frameFailure, reply.ErrorPayload()
	}
	b = append(b, kind)
	b = binary.AppendUvarint(b, uint64(len(payload)))
	return append(b, payload...)
}

// readFrame reads the next reply. io.EOF is returned only at a frame boundary.
func readFrame(r *bufio.Reader) (domain.Reply, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return domain.Reply{}, err
	}

	n, err := binary.ReadUvarint(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return domain.Reply{}, fmt.Errorf("read frame length: %w", err)
	}
	if n > MaxFrameSize {
		return domain.Reply{}, fmt.Errorf("frame of %d bytes exceeds limit of %d", n, MaxFrameSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return domain.Reply{}, fmt.Errorf("read frame payload: %w", err)
	}

	switch kind {
	case frameSuccess:
		return domain.Success(payload), nil
	case frameFailure:
		return domain.Failure(payload), nil
	default:
		return domain.Reply{}, fmt.Errorf("unknown frame kind %d", kind)
	}
}
