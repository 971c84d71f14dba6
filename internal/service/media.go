package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/magcho/hedgedoc/internal/domain"
	"github.com/magcho/hedgedoc/internal/validator"
)

// MediaServiceImpl implements domain.MediaService
type MediaServiceImpl struct {
	backend   domain.StorageBackend
	media     domain.MediaRepository
	users     domain.UserRepository
	notes     domain.NoteRepository
	validator *validator.ContentValidator
}

// NewMediaService creates a new media service
func NewMediaService(
	backend domain.StorageBackend,
	media domain.MediaRepository,
	users domain.UserRepository,
	notes domain.NoteRepository,
	contentValidator *validator.ContentValidator,
) *MediaServiceImpl {
	return &MediaServiceImpl{
		backend:   backend,
		media:     media,
		users:     users,
		notes:     notes,
		validator: contentValidator,
	}
}

// SaveFile validates the content, stores it physically, then persists the
// record. The ordering guarantees that no record ever exists without backing
// content; a crash after the backend save leaves at worst an orphaned
// artifact, reconcilable by the sweep tool.
func (s *MediaServiceImpl) SaveFile(ctx context.Context, content []byte, userID string, noteID string) (string, error) {
	contentType, err := s.validator.Classify(content)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve uploader %s: %w", userID, err)
	}

	var note *domain.Note
	if noteID != "" {
		note, err = s.notes.GetByID(ctx, noteID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve note %s: %w", noteID, err)
		}
	}

	id := newUploadID()
	fileName := id + s.validator.Extension(content)

	_, backendData, err := s.backend.SaveFile(ctx, content, fileName)
	if err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	upload := &domain.MediaUpload{
		ID:          id,
		UserID:      user.ID,
		ContentType: contentType,
		Size:        int64(len(content)),
		BackendData: backendData,
		CreatedAt:   time.Now(),
	}
	if note != nil {
		upload.NoteID = &note.ID
	}

	if err := s.media.Create(ctx, upload); err != nil {
		// Record persistence failed after the physical save; remove the
		// artifact so no stored content stays reachable without a record
		// owner being returned to the caller.
		if delErr := s.backend.DeleteFile(ctx, fileName, backendData); delErr != nil && !errors.Is(delErr, domain.ErrArtifactMissing) {
			log.Printf("Warning: failed to clean up artifact %s after record failure: %v", fileName, delErr)
		}
		return "", fmt.Errorf("failed to persist media upload: %w", err)
	}

	return upload.ID, nil
}

// GetFileContent reads the stored bytes of an upload back through the backend.
func (s *MediaServiceImpl) GetFileContent(ctx context.Context, upload *domain.MediaUpload) ([]byte, error) {
	content, err := s.backend.GetFile(ctx, upload.ID, upload.BackendData)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactMissing) {
			return nil, fmt.Errorf("artifact for upload %s is gone: %w", upload.ID, err)
		}
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return content, nil
}

// DeleteFile removes the physical artifact first and the record second, so a
// crash in between leaves an orphaned artifact rather than a dangling record.
// An artifact that is already gone must not block record cleanup.
func (s *MediaServiceImpl) DeleteFile(ctx context.Context, upload *domain.MediaUpload) error {
	if err := s.backend.DeleteFile(ctx, upload.ID, upload.BackendData); err != nil {
		if !errors.Is(err, domain.ErrArtifactMissing) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		log.Printf("Warning: artifact for upload %s already absent, removing record anyway", upload.ID)
	}

	if err := s.media.Delete(ctx, upload.ID); err != nil {
		return fmt.Errorf("failed to delete media upload record: %w", err)
	}
	return nil
}

// FindUploadByFilename resolves an upload id to its record. A lookup racing a
// delete may return ErrNotInStore for an id that existed moments before; the
// store reads whatever is there at the moment of the call.
func (s *MediaServiceImpl) FindUploadByFilename(ctx context.Context, fileName string) (*domain.MediaUpload, error) {
	upload, err := s.media.GetByID(ctx, fileName)
	if err != nil {
		return nil, err
	}
	return upload, nil
}

func (s *MediaServiceImpl) ListUploadsByUser(ctx context.Context, user *domain.User) ([]*domain.MediaUpload, error) {
	uploads, err := s.media.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads by user: %w", err)
	}
	return normalize(uploads), nil
}

func (s *MediaServiceImpl) ListUploadsByNote(ctx context.Context, note *domain.Note) ([]*domain.MediaUpload, error) {
	uploads, err := s.media.ListByNoteID(ctx, note.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads by note: %w", err)
	}
	return normalize(uploads), nil
}

// RemoveNoteFromMediaUpload orphans the upload: the note reference is cleared
// while record and content stay for audit or later cleanup. Detaching an
// already detached upload is a no-op.
func (s *MediaServiceImpl) RemoveNoteFromMediaUpload(ctx context.Context, upload *domain.MediaUpload) (*domain.MediaUpload, error) {
	if err := s.media.DetachNote(ctx, upload.ID); err != nil {
		return nil, fmt.Errorf("failed to remove note from media upload: %w", err)
	}
	upload.NoteID = nil
	return upload, nil
}

// normalize guarantees list results are never nil, only empty.
func normalize(uploads []*domain.MediaUpload) []*domain.MediaUpload {
	if uploads == nil {
		return []*domain.MediaUpload{}
	}
	return uploads
}
