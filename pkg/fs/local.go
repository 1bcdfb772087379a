package fs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/prxssh/tap/api"
)

// Local is a Storer over the local file system. Paths are OS paths.
type Local struct{}

var _ api.Storer = (*Local)(nil)

func NewLocalStorage() *Local {
	return &Local{}
}

func (l *Local) OpenRead(path string, offset, length int64) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if offset == 0 && length == -1 {
		return f, nil
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	if length >= 0 {
		return &limitReadCloser{
			r: io.LimitReader(f, length),
			c: f,
		}, nil
	}

	return f, nil
}

func (l *Local) OpenWrite(path string) (io.WriteCloser, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fs: failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (l *Local) Stat(path string) (api.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return api.FileInfo{}, err
	}

	return api.FileInfo{
		Path:    path,
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
	}, nil
}

func (l *Local) List(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	children := make([]string, 0, len(entries))
	for _, entry := range entries {
		children = append(children, filepath.Join(path, entry.Name()))
	}
	sort.Strings(children)

	return children, nil
}

func (l *Local) Delete(path string) error {
	err := os.RemoveAll(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	return err
}

type limitReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitReadCloser) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

func (l *limitReadCloser) Close() error {
	return l.c.Close()
}
