package artifact

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/luxfi/substrate-mpc/pkg/common/pathutil"
)

// FileBackend stores every key as <root>/<ceremony>/<key>.json.
type FileBackend struct {
	root string
}

func NewFileBackend(root string) (*FileBackend, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &FileBackend{root: root}, nil
}

func (f *FileBackend) Root() string { return f.root }

func (f *FileBackend) file(key string) (string, error) {
	elems := strings.Split(key, "/")
	elems[len(elems)-1] += ".json"
	return pathutil.SafePath(f.root, elems...)
}

func (f *FileBackend) Put(_ context.Context, key string, value []byte) error {
	p, err := f.file(key)
	if err != nil {
		return err
	}
	return pathutil.WriteFileAtomic(p, value, 0o600)
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	p, err := f.file(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	p, err := f.file(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }
