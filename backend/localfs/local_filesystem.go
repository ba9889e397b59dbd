package localfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemLister snapshots the names of the regular files directly
// under a served directory. Subdirectories are skipped, not descended
// into; the listing a client sees is exactly what the server will agree
// to send.
type FileSystemLister struct {
	root string
}

func NewFileSystemLister(root string) *FileSystemLister {
	return &FileSystemLister{root: root}
}

func (fsl *FileSystemLister) List() ([]string, error) {
	entries, err := os.ReadDir(fsl.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", fsl.root, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Stat resolves a requested name against the served directory and
// returns its size. Names carrying path separators are rejected so a
// request cannot escape the root.
func (fsl *FileSystemLister) Stat(name string) (int64, error) {
	if name == "" || name != filepath.Base(name) {
		return 0, os.ErrNotExist
	}
	info, err := os.Stat(filepath.Join(fsl.root, name))
	if err != nil || info.IsDir() {
		return 0, os.ErrNotExist
	}
	return info.Size(), nil
}

func (fsl *FileSystemLister) Path(name string) string {
	return filepath.Join(fsl.root, name)
}

// RangeReader is a random-access byte-range reader over one local file.
// The sender re-derives its window slice from this after every ack, so
// reads at arbitrary offsets must return exactly the requested range or
// fewer bytes at end of file.
type RangeReader struct {
	file *os.File
	size int64
}

func OpenRangeReader(path string) (*RangeReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &RangeReader{file: file, size: info.Size()}, nil
}

func (rr *RangeReader) Size() int64 { return rr.size }

// ReadRange reads up to length bytes starting at offset. Short reads at
// end of file are normal and come back without an error.
func (rr *RangeReader) ReadRange(offset int64, length int) ([]byte, error) {
	if length <= 0 || offset >= rr.size {
		return nil, nil
	}
	buf := make([]byte, length)
	n, err := rr.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read at %d: %w", offset, err)
	}
	return buf[:n], nil
}

func (rr *RangeReader) Close() error { return rr.file.Close() }

// FileWriter appends received payloads to a local output path, creating
// or truncating it first.
type FileWriter struct {
	file *os.File
}

func NewFileWriter(path string) (*FileWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &FileWriter{file: file}, nil
}

func (fw *FileWriter) Append(p []byte) error {
	_, err := fw.file.Write(p)
	return err
}

func (fw *FileWriter) Sync() error { return fw.file.Sync() }

func (fw *FileWriter) Close() error { return fw.file.Close() }
