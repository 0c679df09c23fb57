package model

import "time"

// Document describes a file available in the document store.
// This is a pure domain model with no storage-specific dependencies.
type Document struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}
