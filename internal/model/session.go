package model

import "time"

// SessionState is the lifecycle state of a viewing session as seen by this service.
type SessionState string

const (
	SessionCreated      SessionState = "created"
	SessionUploading    SessionState = "uploading"
	SessionCompleted    SessionState = "completed"
	SessionUploadFailed SessionState = "upload_failed"
)

// ViewingSession is a remote viewing session created for one document.
// The remote service owns the session; this is the local view of it.
type ViewingSession struct {
	ID          string       `json:"viewingSessionId"`
	DisplayName string       `json:"displayName"`
	State       SessionState `json:"state"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
