package domain

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Note is the document uploads attach to. Revisions and permissions live in
// the editing layer; only the fields the media subsystem reads are modeled.
type Note struct {
	ID        string    `bson:"_id" json:"id"`
	PublicID  string    `bson:"public_id" json:"publicId"`
	Alias     *string   `bson:"alias,omitempty" json:"alias"`
	OwnerID   string    `bson:"owner_id" json:"ownerId"`
	Title     string    `bson:"title" json:"title"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// NoteRepository resolves and removes note references.
type NoteRepository interface {
	Create(ctx context.Context, note *Note) error
	GetByID(ctx context.Context, id string) (*Note, error)
	GetByAlias(ctx context.Context, alias string) (*Note, error)
	Delete(ctx context.Context, id string) error
}

// NewNotePublicID returns a sortable public id for a note. Notes are listed
// chronologically, so a ULID fits here; upload ids must not encode time and
// are generated elsewhere.
func NewNotePublicID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
