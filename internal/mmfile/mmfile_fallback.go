//go:build !unix

package mmfile

import "os"

// Map reads the whole file into memory on platforms without mmap support.
// The returned cleanup is a no-op; the garbage collector owns the buffer.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
