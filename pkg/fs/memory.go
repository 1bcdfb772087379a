package fs

import (
	"bytes"
	"errors"
	"io"
	iofs "io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prxssh/tap/api"
)

// Memory is a Storer that keeps files in process memory. Paths are
// slash-separated; directories exist implicitly while they hold a file.
//
// Written data becomes visible when the writer is closed. Memory is safe for
// concurrent use.
type Memory struct {
	mu    sync.RWMutex
	files map[string]memFile
}

type memFile struct {
	data    []byte
	modTime time.Time
}

var _ api.Storer = (*Memory)(nil)

func NewMemoryStorage() *Memory {
	return &Memory{files: make(map[string]memFile)}
}

func (m *Memory) OpenRead(name string, offset, length int64) (io.ReadCloser, error) {
	name = path.Clean(name)

	m.mu.RLock()
	f, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		return nil, &iofs.PathError{Op: "open", Path: name, Err: iofs.ErrNotExist}
	}

	if offset < 0 {
		return nil, &iofs.PathError{Op: "seek", Path: name, Err: iofs.ErrInvalid}
	}

	data := f.data[min(offset, int64(len(f.data))):]
	if length >= 0 && length < int64(len(data)) {
		data = data[:length]
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) OpenWrite(name string) (io.WriteCloser, error) {
	name = path.Clean(name)
	if name == "/" || name == "." {
		return nil, &iofs.PathError{Op: "create", Path: name, Err: iofs.ErrInvalid}
	}

	return &memWriter{m: m, name: name}, nil
}

func (m *Memory) Stat(name string) (api.FileInfo, error) {
	name = path.Clean(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if f, ok := m.files[name]; ok {
		return api.FileInfo{
			Path:    name,
			Size:    int64(len(f.data)),
			ModTime: f.modTime,
		}, nil
	}

	prefix := dirPrefix(name)
	info := api.FileInfo{Path: name, IsDir: true}
	found := false
	for key, f := range m.files {
		if strings.HasPrefix(key, prefix) {
			found = true
			if f.modTime.After(info.ModTime) {
				info.ModTime = f.modTime
			}
		}
	}
	if !found {
		return api.FileInfo{}, &iofs.PathError{Op: "stat", Path: name, Err: iofs.ErrNotExist}
	}

	return info, nil
}

func (m *Memory) List(name string) ([]string, error) {
	name = path.Clean(name)
	prefix := dirPrefix(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.files[name]; ok {
		return nil, &iofs.PathError{Op: "readdir", Path: name, Err: errors.New("not a directory")}
	}

	seen := make(map[string]struct{})
	for key := range m.files {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		child, _, _ := strings.Cut(rest, "/")
		seen[prefix+child] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, &iofs.PathError{Op: "readdir", Path: name, Err: iofs.ErrNotExist}
	}

	children := make([]string, 0, len(seen))
	for child := range seen {
		children = append(children, child)
	}
	sort.Strings(children)

	return children, nil
}

func (m *Memory) Delete(name string) error {
	name = path.Clean(name)
	prefix := dirPrefix(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.files {
		if key == name || strings.HasPrefix(key, prefix) {
			delete(m.files, key)
		}
	}

	return nil
}

func dirPrefix(name string) string {
	if strings.HasSuffix(name, "/") {
		return name
	}
	return name + "/"
}

type memWriter struct {
	m      *Memory
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, iofs.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	if w.closed {
		return iofs.ErrClosed
	}
	w.closed = true

	w.m.mu.Lock()
	defer w.m.mu.Unlock()

	w.m.files[w.name] = memFile{
		data:    bytes.Clone(w.buf.Bytes()),
		modTime: time.Now(),
	}

	return nil
}
