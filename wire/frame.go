// Package wire provides the blocking, message-framed channel that creatures
// and the broker talk through.
//
// A frame is a 4-byte big-endian signed length followed by that many payload
// bytes. A negative length is the end frame and carries no payload. A zero
// length is a valid empty payload.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 4
	endLength  = -1

	// MaxFrameSize is the largest payload a frame may carry.
	MaxFrameSize = 1 << 20
)

var (
	// ErrShortFrame is returned when a stream ends in the middle of a frame.
	ErrShortFrame = errors.New("wire: short frame")

	// ErrFrameTooLarge is returned when a frame exceeds the size the
	// transport can carry.
	ErrFrameTooLarge = errors.New("wire: frame too large")

	// ErrClosed is returned when sending or receiving on a closed channel.
	ErrClosed = errors.New("wire: channel closed")
)

// EncodeFrame returns the bytes of a frame carrying the payload.
func EncodeFrame(payload []byte) []byte {
	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(int32(len(payload))))
	copy(frame[headerSize:], payload)

	return frame
}

// EncodeEnd returns the bytes of the end frame.
func EncodeEnd() []byte {
	frame := make([]byte, headerSize)
	endLen := int32(endLength)
	binary.BigEndian.PutUint32(frame, uint32(endLen))

	return frame
}

// WriteFrame writes a payload frame with a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	return writeWhole(w, EncodeFrame(payload))
}

// WriteEnd writes the end frame.
func WriteEnd(w io.Writer) error {
	return writeWhole(w, EncodeEnd())
}

func writeWhole(w io.Writer, frame []byte) error {
	n, err := w.Write(frame)
	if err != nil {
		return err
	}

	if n != len(frame) {
		return io.ErrShortWrite
	}

	return nil
}

// ReadFrame blocks until a whole frame is read. It returns ok == false for
// the end frame. A stream that ends cleanly before a frame starts returns
// io.EOF; one that ends inside a frame returns ErrShortFrame.
func ReadFrame(r io.Reader) (payload []byte, ok bool, err error) {
	var header [headerSize]byte

	_, err = io.ReadFull(r, header[:])
	if err == io.ErrUnexpectedEOF {
		return nil, false, fmt.Errorf("%w: incomplete header", ErrShortFrame)
	}

	if err != nil {
		return nil, false, err
	}

	length := int32(binary.BigEndian.Uint32(header[:]))
	if length < 0 {
		return nil, false, nil
	}

	if length > MaxFrameSize {
		return nil, false, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	payload = make([]byte, length)

	_, err = io.ReadFull(r, payload)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, false, fmt.Errorf(
			"%w: want %d payload bytes", ErrShortFrame, length)
	}

	if err != nil {
		return nil, false, err
	}

	return payload, true, nil
}
