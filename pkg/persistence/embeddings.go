// Package persistence stores node embeddings in a checksummed binary file.
//
// A file is a sequence of frames (see frame.go): one OpHeader frame followed
// by exactly one OpVector frame per node. Values are written in the precision
// recorded in the header; float16 halves the size of float32 at the cost of
// about three significant digits.
package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/x448/float16"

	"github.com/sanonone/kektorgraph/pkg/storage/mmap"
)

// FormatVersion is written into every header.
const FormatVersion = 1

// Precision is the on-disk element type.
type Precision string

const (
	Float64 Precision = "float64"
	Float32 Precision = "float32"
	Float16 Precision = "float16"
)

var (
	// ErrUnknownPrecision is returned for precisions other than the constants above.
	ErrUnknownPrecision = errors.New("unknown precision")
	// ErrMalformedFile is returned when frames are missing, misordered or
	// inconsistent with the header.
	ErrMalformedFile = errors.New("malformed embedding file")
)

var precisionCodes = map[Precision]byte{Float64: 1, Float32: 2, Float16: 3}

func (p Precision) code() (byte, error) {
	c, ok := precisionCodes[p]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownPrecision, "%q", string(p))
	}
	return c, nil
}

func precisionFromCode(c byte) (Precision, error) {
	for p, code := range precisionCodes {
		if code == c {
			return p, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownPrecision, "code %d", c)
}

// ParsePrecision validates a precision name. The empty string selects Float32.
func ParsePrecision(s string) (Precision, error) {
	if s == "" {
		return Float32, nil
	}
	p := Precision(s)
	if _, err := p.code(); err != nil {
		return "", err
	}
	return p, nil
}

// Width returns the encoded size of one element in bytes.
func (p Precision) Width() int {
	switch p {
	case Float64:
		return 8
	case Float32:
		return 4
	case Float16:
		return 2
	default:
		return 0
	}
}

// Embeddings is the decoded content of an embedding file.
type Embeddings struct {
	Precision Precision
	Dim       int
	Keys      []string
	Vectors   [][]float64
}

const headerPayloadSize = 1 + 1 + 4 + 4

// WriteEmbeddings encodes keys and vectors in the given precision. All
// vectors must share one dimension.
func WriteEmbeddings(w io.Writer, keys []string, vectors [][]float64, precision Precision) error {
	if len(keys) != len(vectors) {
		return errors.Newf("%d keys for %d vectors", len(keys), len(vectors))
	}
	code, err := precision.code()
	if err != nil {
		return err
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	fw := NewFrameWriter(w)
	header := make([]byte, headerPayloadSize)
	header[0] = FormatVersion
	header[1] = code
	binary.LittleEndian.PutUint32(header[2:6], uint32(dim))
	binary.LittleEndian.PutUint32(header[6:10], uint32(len(vectors)))
	if err := fw.WriteFrame(OpHeader, header); err != nil {
		return errors.Wrap(err, "write header")
	}

	width := precision.Width()
	var buf []byte
	for i, v := range vectors {
		if len(v) != dim {
			return errors.Newf("vector %d (%q) has dimension %d, expected %d", i, keys[i], len(v), dim)
		}
		buf = buf[:0]
		buf = binary.AppendUvarint(buf, uint64(len(keys[i])))
		buf = append(buf, keys[i]...)
		off := len(buf)
		buf = append(buf, make([]byte, dim*width)...)
		encodeValues(buf[off:], v, precision)
		if err := fw.WriteFrame(OpVector, buf); err != nil {
			return errors.Wrapf(err, "write vector %d", i)
		}
	}
	return nil
}

func encodeValues(dst []byte, v []float64, p Precision) {
	switch p {
	case Float64:
		for i, x := range v {
			binary.LittleEndian.PutUint64(dst[i*8:], math.Float64bits(x))
		}
	case Float32:
		for i, x := range v {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(float32(x)))
		}
	case Float16:
		for i, x := range v {
			binary.LittleEndian.PutUint16(dst[i*2:], float16.Fromfloat32(float32(x)).Bits())
		}
	}
}

func decodeValues(src []byte, dim int, p Precision) []float64 {
	out := make([]float64, dim)
	switch p {
	case Float64:
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:]))
		}
	case Float32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:])))
		}
	case Float16:
		for i := range out {
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(src[i*2:])).Float32())
		}
	}
	return out
}

// ReadEmbeddings decodes a stream written by WriteEmbeddings.
func ReadEmbeddings(r io.Reader) (*Embeddings, error) {
	op, payload, err := ReadFrame(r)
	if err == io.EOF {
		return nil, errors.Wrap(ErrMalformedFile, "empty stream")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if op != OpHeader || len(payload) != headerPayloadSize {
		return nil, errors.Wrap(ErrMalformedFile, "first frame is not a header")
	}
	if payload[0] != FormatVersion {
		return nil, errors.Wrapf(ErrMalformedFile, "unsupported version %d", payload[0])
	}
	precision, err := precisionFromCode(payload[1])
	if err != nil {
		return nil, err
	}
	dim := int(binary.LittleEndian.Uint32(payload[2:6]))
	count := int(binary.LittleEndian.Uint32(payload[6:10]))

	emb := &Embeddings{
		Precision: precision,
		Dim:       dim,
		Keys:      make([]string, 0, min(count, 1<<16)),
		Vectors:   make([][]float64, 0, min(count, 1<<16)),
	}
	width := precision.Width()
	for i := 0; i < count; i++ {
		op, payload, err := ReadFrame(r)
		if err == io.EOF {
			return nil, errors.Wrapf(ErrMalformedFile, "expected %d vectors, found %d", count, i)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read vector %d", i)
		}
		if op != OpVector {
			return nil, errors.Wrapf(ErrMalformedFile, "frame %d has opcode %#x", i+1, byte(op))
		}
		keyLen, n := binary.Uvarint(payload)
		if n <= 0 || uint64(len(payload)-n) != keyLen+uint64(dim*width) {
			return nil, errors.Wrapf(ErrMalformedFile, "vector %d has a bad length", i)
		}
		key := string(payload[n : n+int(keyLen)])
		emb.Keys = append(emb.Keys, key)
		emb.Vectors = append(emb.Vectors, decodeValues(payload[n+int(keyLen):], dim, precision))
	}

	if _, _, err := ReadFrame(r); err != io.EOF {
		return nil, errors.Wrap(ErrMalformedFile, "trailing data after last vector")
	}
	return emb, nil
}

// SaveFile writes the embeddings to path atomically: the data goes to a
// temporary file in the same directory, is fsynced, then renamed.
func SaveFile(path string, keys []string, vectors [][]float64, precision Precision) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temporary embedding file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = WriteEmbeddings(buf, keys, vectors, precision); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return errors.Wrap(err, "flush embedding file")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync embedding file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close embedding file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "rename embedding file")
	}
	return nil
}

// LoadFile reads an embedding file from path through a read-only memory
// mapping.
func LoadFile(path string) (*Embeddings, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open embedding file")
	}
	defer m.Close()

	emb, err := ReadEmbeddings(bytes.NewReader(m.Bytes()))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return emb, nil
}
