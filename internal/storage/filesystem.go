package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"docviewer/internal/model"
)

// FileStore serves documents from a local directory.
// Every access goes through os.Root, so symlinks cannot escape the root either.
type FileStore struct {
	root string
}

// NewFileStore returns a store rooted at dir. The directory must exist.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("documents directory is required")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat documents directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("documents path %q is not a directory", dir)
	}
	return &FileStore{root: dir}, nil
}

var _ DocumentStore = (*FileStore)(nil)

// Root returns the directory the store reads from.
func (s *FileStore) Root() string { return s.root }

// Read returns the content of the named document.
func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(s.root)
	if err != nil {
		return nil, fmt.Errorf("open documents root: %w", err)
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return nil, mapFSError(name, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// List returns the regular, non-hidden files directly under the root.
func (s *FileStore) List(ctx context.Context) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(s.root)
	if err != nil {
		return nil, fmt.Errorf("open documents root: %w", err)
	}
	defer root.Close()

	entries, err := fs.ReadDir(root.FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]model.Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		docs = append(docs, model.Document{
			Name:       e.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}
	return docs, nil
}

func mapFSError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fmt.Errorf("open %s: %w", name, err)
}
