package domain

import (
	"context"
	"time"
)

// MediaUpload is the durable record for one stored upload. The ID doubles as
// the public retrieval handle; the original filename is never exposed.
type MediaUpload struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"userId"`
	NoteID      *string   `bson:"note_id,omitempty" json:"noteId"`
	ContentType string    `bson:"content_type" json:"contentType"`
	Size        int64     `bson:"size" json:"size"`
	BackendData string    `bson:"backend_data" json:"-"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// MediaRepository defines the durable store for MediaUpload records.
type MediaRepository interface {
	Create(ctx context.Context, upload *MediaUpload) error
	GetByID(ctx context.Context, id string) (*MediaUpload, error)
	ListByUserID(ctx context.Context, userID string) ([]*MediaUpload, error)
	ListByNoteID(ctx context.Context, noteID string) ([]*MediaUpload, error)
	// DetachNote clears the note reference. Detaching an already detached
	// record is not an error.
	DetachNote(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// StorageBackend is the physical-storage contract. Implementations choose
// their own addressing scheme; fileName is a hint derived from the upload id,
// never a client-supplied path. BackendData returned by SaveFile is opaque to
// callers and only interpreted by the backend that produced it.
type StorageBackend interface {
	// SaveFile persists content atomically: on error no partial artifact
	// stays reachable.
	SaveFile(ctx context.Context, content []byte, fileName string) (location string, backendData string, err error)
	// GetFile reads the stored content back. Returns ErrArtifactMissing if
	// the artifact is gone.
	GetFile(ctx context.Context, fileName string, backendData string) ([]byte, error)
	// DeleteFile removes the artifact. Returns ErrArtifactMissing if it was
	// already gone; callers decide whether that is fatal.
	DeleteFile(ctx context.Context, fileName string, backendData string) error
}

// Artifact describes one stored object as the backend sees it.
type Artifact struct {
	Name    string
	ModTime time.Time
}

// ArtifactLister is implemented by backends that can enumerate their stored
// artifacts, enabling out-of-band reconciliation of orphaned content. ModTime
// lets callers leave recently written artifacts alone while a save may still
// be in flight.
type ArtifactLister interface {
	ListArtifacts(ctx context.Context) ([]Artifact, error)
}

// MediaService orchestrates validation, physical storage and record keeping.
type MediaService interface {
	// SaveFile validates content, stores it through the backend and persists
	// a record. noteID may be empty for an unattached upload. The returned
	// string is the record id, usable as URL component.
	SaveFile(ctx context.Context, content []byte, userID string, noteID string) (string, error)
	// GetFileContent reads the stored bytes of an upload back.
	GetFileContent(ctx context.Context, upload *MediaUpload) ([]byte, error)
	// DeleteFile removes the artifact and then the record. A physically
	// missing artifact does not block record cleanup.
	DeleteFile(ctx context.Context, upload *MediaUpload) error
	FindUploadByFilename(ctx context.Context, fileName string) (*MediaUpload, error)
	ListUploadsByUser(ctx context.Context, user *User) ([]*MediaUpload, error)
	ListUploadsByNote(ctx context.Context, note *Note) ([]*MediaUpload, error)
	// RemoveNoteFromMediaUpload detaches the upload from its note, keeping
	// record and content. Safe to call on an already detached upload.
	RemoveNoteFromMediaUpload(ctx context.Context, upload *MediaUpload) (*MediaUpload, error)
}
