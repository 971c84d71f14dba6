package service

import "github.com/google/uuid"

// newUploadID returns the public retrieval handle for a stored upload.
// Random v4 UUIDs are used instead of the ULIDs seen elsewhere in the
// platform: upload ids are unguessable URLs and must not encode who uploaded
// or when. Ids are never reused, even after deletion.
func newUploadID() string {
	return uuid.NewString()
}
