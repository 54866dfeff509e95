// Package mmap maps files read-only into memory.
package mmap

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

// File is a read-only memory mapping of a whole file.
type File struct {
	mu   sync.Mutex
	data []byte
}

// Open maps the file at path. An empty file yields an empty mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat mapped file")
	}
	size := info.Size()
	if size == 0 {
		return &File{}, nil
	}
	if int64(int(size)) != size {
		return nil, errors.Newf("file too large to map: %d bytes", size)
	}

	data, err := mmapFile(f.Fd(), int(size))
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", path)
	}
	return &File{data: data}, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *File) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Len returns the mapped size in bytes.
func (m *File) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Close unmaps the file. It is safe to call more than once.
func (m *File) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	err := munmapFile(m.data)
	m.data = nil
	return err
}
