package persistence

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/cockroachdb/errors"
)

// Constants for the binary frame protocol.
const (
	// MagicByte marks the start of every frame so a reader can tell a
	// misaligned or foreign stream apart from a valid one.
	MagicByte = 0xA5

	// HeaderSize is the fixed frame metadata:
	// 1 byte (Magic) + 1 byte (OpCode) + 4 bytes (Length) + 4 bytes (CRC32).
	HeaderSize = 10

	// MaxPayload bounds a single frame so a corrupted length cannot trigger
	// a huge allocation.
	MaxPayload = 64 << 20
)

// OpCode identifies the record carried by a frame.
type OpCode byte

const (
	// OpHeader carries the embedding file header.
	OpHeader OpCode = 0x10
	// OpVector carries one node key and its vector.
	OpVector OpCode = 0x11
)

var (
	// ErrInvalidMagic indicates the stream lost synchronization or is not an
	// embedding file.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates corruption within a frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the stream ended inside a frame.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrFrameTooLarge indicates a length field above MaxPayload.
	ErrFrameTooLarge = errors.New("frame too large")
)

// FrameWriter writes binary frames to an io.Writer.
type FrameWriter struct {
	w      io.Writer
	header [HeaderSize]byte
}

// NewFrameWriter wraps w. Wrap files in a bufio.Writer so header and payload
// reach the OS in one write.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes payload as [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)].
func (fw *FrameWriter) WriteFrame(op OpCode, payload []byte) error {
	if len(payload) > MaxPayload {
		return errors.Wrapf(ErrFrameTooLarge, "%d bytes", len(payload))
	}
	fw.header[0] = MagicByte
	fw.header[1] = byte(op)
	binary.LittleEndian.PutUint32(fw.header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(fw.header[6:10], crc32.ChecksumIEEE(payload))

	if _, err := fw.w.Write(fw.header[:]); err != nil {
		return err
	}
	_, err := fw.w.Write(payload)
	return err
}

// ReadFrame reads the next frame, validating the magic byte and checksum.
// A clean end of stream before a frame starts returns io.EOF.
func ReadFrame(r io.Reader) (OpCode, []byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, ErrIncompleteFrame
	}
	if header[0] != MagicByte {
		return 0, nil, ErrInvalidMagic
	}

	op := OpCode(header[1])
	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])
	if length > MaxPayload {
		return 0, nil, errors.Wrapf(ErrFrameTooLarge, "%d bytes", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, ErrIncompleteFrame
	}
	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return 0, nil, ErrChecksumMismatch
	}
	return op, payload, nil
}
