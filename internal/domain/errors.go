package domain

import "errors"

// Common errors
var (
	// ErrNotFound signals a missing user or note reference.
	ErrNotFound = errors.New("record not found")
	// ErrNotInStore signals a media upload id that has no record behind it.
	ErrNotInStore = errors.New("media upload not in store")
	// ErrUnidentifiableContent signals content whose MIME type could not be
	// determined from its bytes at all.
	ErrUnidentifiableContent = errors.New("content type could not be identified")
	// ErrUnsupportedMediaType signals a recognized MIME type outside the allow-list.
	ErrUnsupportedMediaType = errors.New("content type is not supported")
	// ErrArtifactMissing is returned by storage backends when the physical
	// artifact to delete or read is already gone.
	ErrArtifactMissing = errors.New("storage artifact missing")
	ErrForbidden       = errors.New("access forbidden: you don't own this resource")
)
