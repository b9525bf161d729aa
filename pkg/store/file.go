package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore persists documents as JSON files under root/collection/key.json.
type FileStore struct {
	root     string
	fileMode os.FileMode
}

// NewFileStore creates a filesystem-backed Store rooted at root.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store: root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &FileStore{root: abs, fileMode: 0o600}, nil
}

// Get loads a document from disk.
func (f *FileStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := f.docPath(collection, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Put writes a document to disk, creating the collection directory as needed.
func (f *FileStore) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := f.docPath(collection, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.WriteFile(full, value, f.fileMode); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes a document. Missing documents are ignored.
func (f *FileStore) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := f.docPath(collection, key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// List enumerates document keys in a collection, sorted.
func (f *FileStore) List(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := f.segmentPath(collection)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FileStore) docPath(collection, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("store: key is required")
	}
	dir, err := f.segmentPath(collection)
	if err != nil {
		return "", err
	}
	full := filepath.Clean(filepath.Join(dir, key+".json"))
	if !strings.HasPrefix(full, f.root) {
		return "", fmt.Errorf("store: key %q escapes store root", key)
	}
	return full, nil
}

func (f *FileStore) segmentPath(collection string) (string, error) {
	if strings.TrimSpace(collection) == "" {
		return "", errors.New("store: collection is required")
	}
	full := filepath.Clean(filepath.Join(f.root, collection))
	if !strings.HasPrefix(full, f.root) {
		return "", fmt.Errorf("store: collection %q escapes store root", collection)
	}
	return full, nil
}

var _ Store = (*FileStore)(nil)
