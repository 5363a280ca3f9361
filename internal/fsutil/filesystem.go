// Package fsutil abstracts file access so that the plot and chart writers
// can be tested against an in-memory filesystem instead of disk.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSystem is the file access surface used by output writers. OSFileSystem
// is the production implementation; MemoryFileSystem backs tests.
type FileSystem interface {
	// Open opens the named file for reading.
	Open(name string) (fs.File, error)

	// Create creates or truncates the named file for writing.
	Create(name string) (io.WriteCloser, error)

	// ReadFile returns the contents of the named file.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if needed.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// Stat describes the named file or directory.
	Stat(name string) (fs.FileInfo, error)

	// MkdirAll creates the named directory along with any missing parents.
	MkdirAll(path string, perm os.FileMode) error

	// Exists reports whether the named file or directory exists.
	Exists(name string) bool
}

// OSFileSystem passes every operation through to the os package.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (fs.File, error) { return os.Open(name) }

func (OSFileSystem) Create(name string) (io.WriteCloser, error) { return os.Create(name) }

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem keeps files and directories in a map, keyed by cleaned
// path. Safe for concurrent use.
type MemoryFileSystem struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
}

// memEntry is either a file (dir false, data valid) or a directory marker.
type memEntry struct {
	data []byte
	mode fs.FileMode
	dir  bool
}

// NewMemoryFileSystem returns an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{entries: make(map[string]*memEntry)}
}

// file looks up a file entry under the read lock and returns a copy of its
// data, so callers cannot observe later writes.
func (m *MemoryFileSystem) file(op, name string) (string, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	e, ok := m.entries[name]
	if !ok || e.dir {
		return name, nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return name, bytes.Clone(e.data), nil
}

func (m *MemoryFileSystem) Open(name string) (fs.File, error) {
	name, data, err := m.file("open", name)
	if err != nil {
		return nil, err
	}
	return &memReader{name: name, Reader: bytes.NewReader(data)}, nil
}

func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	return &memWriter{fsys: m, name: filepath.Clean(name)}, nil
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	_, data, err := m.file("read", name)
	return data, err
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[filepath.Clean(name)] = &memEntry{data: bytes.Clone(data), mode: perm}
	return nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	e, ok := m.entries[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return &memInfo{name: filepath.Base(name), size: int64(len(e.data)), mode: e.mode, dir: e.dir}, nil
}

func (m *MemoryFileSystem) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Mark the directory and every ancestor.
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if e, ok := m.entries[p]; !ok || !e.dir {
			m.entries[p] = &memEntry{mode: perm, dir: true}
		}
		if parent := filepath.Dir(p); parent == p || parent == "." || parent == "/" {
			break
		}
	}
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[filepath.Clean(name)]
	return ok
}

// memReader serves a snapshot of a file's contents as an fs.File.
type memReader struct {
	name string
	*bytes.Reader
}

func (r *memReader) Close() error { return nil }

func (r *memReader) Stat() (fs.FileInfo, error) {
	return &memInfo{name: filepath.Base(r.name), size: r.Size()}, nil
}

// memWriter buffers writes and installs the file on Close, mirroring how a
// real file only has final contents once it is closed.
type memWriter struct {
	fsys *MemoryFileSystem
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.fsys.mu.Lock()
	defer w.fsys.mu.Unlock()

	w.fsys.entries[w.name] = &memEntry{data: bytes.Clone(w.buf.Bytes()), mode: 0644}
	return nil
}

type memInfo struct {
	name string
	size int64
	mode fs.FileMode
	dir  bool
}

func (i *memInfo) Name() string       { return i.name }
func (i *memInfo) Size() int64        { return i.size }
func (i *memInfo) Mode() fs.FileMode  { return i.mode }
func (i *memInfo) ModTime() time.Time { return time.Time{} }
func (i *memInfo) IsDir() bool        { return i.dir }
func (i *memInfo) Sys() any           { return nil }
