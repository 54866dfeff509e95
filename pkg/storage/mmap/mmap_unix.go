//go:build unix

package mmap

import (
	"golang.org/x/sys/unix"
)

// mmapFile maps size bytes of the file read-only and private.
func mmapFile(fd uintptr, size int) ([]byte, error) {
	return unix.Mmap(int(fd), 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
}

func munmapFile(data []byte) error {
	return unix.Munmap(data)
}
