// Package storage contains the read-only document store used as the source of
// documents to view. The store is flat: documents are addressed by a bare
// filename and subdirectories are never traversed.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"docviewer/internal/model"
)

var (
	// ErrNotFound is returned when no document exists under the given name.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidName is returned for names that could leave the store root.
	ErrInvalidName = errors.New("invalid document name")
)

// DocumentStore is a flat, read-only collection of documents.
type DocumentStore interface {
	// Read returns the full content of the named document.
	Read(ctx context.Context, name string) ([]byte, error)
	// List returns the documents in the store ordered by name.
	List(ctx context.Context) ([]model.Document, error)
}

// ValidateName rejects names that are empty, carry a path component, or
// otherwise do not resolve to a direct child of the store root.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, `/\`+"\x00"):
		return ErrInvalidName
	case !filepath.IsLocal(name):
		return ErrInvalidName
	}
	return nil
}
