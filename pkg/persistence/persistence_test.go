package persistence

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeys    = []string{"a", "node-42", ""}
	testVectors = [][]float64{{0.5, -1.25, 3}, {1e-3, 2, -7.5}, {0, 0, 0}}
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	require.NoError(t, fw.WriteFrame(OpHeader, []byte("hello")))
	require.NoError(t, fw.WriteFrame(OpVector, nil))

	op, payload, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpHeader, op)
	assert.Equal(t, []byte("hello"), payload)

	op, payload, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpVector, op)
	assert.Empty(t, payload)

	_, _, err = ReadFrame(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestFrameCorruption(t *testing.T) {
	encode := func() []byte {
		var buf bytes.Buffer
		require.NoError(t, NewFrameWriter(&buf).WriteFrame(OpVector, []byte("payload")))
		return buf.Bytes()
	}

	t.Run("checksum", func(t *testing.T) {
		data := encode()
		data[len(data)-1] ^= 0xFF
		_, _, err := ReadFrame(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("magic", func(t *testing.T) {
		data := encode()
		data[0] = 0x00
		_, _, err := ReadFrame(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("truncated payload", func(t *testing.T) {
		data := encode()
		_, _, err := ReadFrame(bytes.NewReader(data[:len(data)-2]))
		assert.ErrorIs(t, err, ErrIncompleteFrame)
	})

	t.Run("truncated header", func(t *testing.T) {
		data := encode()
		_, _, err := ReadFrame(bytes.NewReader(data[:4]))
		assert.ErrorIs(t, err, ErrIncompleteFrame)
	})
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	testCases := []struct {
		precision Precision
		delta     float64
	}{
		{Float64, 0},
		{Float32, 1e-6},
		{Float16, 5e-3},
	}
	for _, tc := range testCases {
		t.Run(string(tc.precision), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteEmbeddings(&buf, testKeys, testVectors, tc.precision))

			emb, err := ReadEmbeddings(&buf)
			require.NoError(t, err)
			assert.Equal(t, tc.precision, emb.Precision)
			assert.Equal(t, 3, emb.Dim)
			assert.Equal(t, testKeys, emb.Keys)
			require.Len(t, emb.Vectors, len(testVectors))
			for i := range testVectors {
				for d := range testVectors[i] {
					assert.InDelta(t, testVectors[i][d], emb.Vectors[i][d], tc.delta+tc.delta*math.Abs(testVectors[i][d]))
				}
			}
		})
	}
}

func TestWriteEmbeddings_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteEmbeddings(&buf, []string{"a"}, nil, Float32))
	assert.ErrorIs(t, WriteEmbeddings(&buf, nil, nil, "bfloat16"), ErrUnknownPrecision)
	assert.Error(t, WriteEmbeddings(&buf, []string{"a", "b"}, [][]float64{{1, 2}, {1}}, Float32))
}

func TestReadEmbeddings_Malformed(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := ReadEmbeddings(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrMalformedFile)
	})

	t.Run("missing vectors", func(t *testing.T) {
		var full bytes.Buffer
		require.NoError(t, WriteEmbeddings(&full, testKeys, testVectors, Float32))

		// Drop the last frame (empty key, three float32 values) so the
		// header claims one vector more than the stream holds.
		data := full.Bytes()
		truncated := data[:len(data)-(HeaderSize+1+3*4)]
		_, err := ReadEmbeddings(bytes.NewReader(truncated))
		assert.ErrorIs(t, err, ErrMalformedFile)
	})

	t.Run("trailing frame", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteEmbeddings(&buf, testKeys, testVectors, Float32))
		require.NoError(t, NewFrameWriter(&buf).WriteFrame(OpVector, []byte{0}))
		_, err := ReadEmbeddings(&buf)
		assert.ErrorIs(t, err, ErrMalformedFile)
	})

	t.Run("vector first", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFrameWriter(&buf).WriteFrame(OpVector, []byte{0}))
		_, err := ReadEmbeddings(&buf)
		assert.ErrorIs(t, err, ErrMalformedFile)
	})
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.emb")
	require.NoError(t, SaveFile(path, testKeys, testVectors, Float64))

	emb, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testVectors, emb.Vectors)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.emb"))
	assert.Error(t, err)
}

func TestParsePrecision(t *testing.T) {
	p, err := ParsePrecision("")
	require.NoError(t, err)
	assert.Equal(t, Float32, p)

	p, err = ParsePrecision("float16")
	require.NoError(t, err)
	assert.Equal(t, Float16, p)

	_, err = ParsePrecision("int8")
	assert.ErrorIs(t, err, ErrUnknownPrecision)
}
