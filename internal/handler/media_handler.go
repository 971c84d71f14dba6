package handler

import (
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/magcho/hedgedoc/internal/domain"
	"github.com/magcho/hedgedoc/internal/middleware"
)

// MediaHandler handles HTTP requests for media uploads
type MediaHandler struct {
	mediaService domain.MediaService
	users        domain.UserRepository
	notes        domain.NoteRepository
	maxUploadMB  int64
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService domain.MediaService, users domain.UserRepository, notes domain.NoteRepository, maxUploadMB int64) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		users:        users,
		notes:        notes,
		maxUploadMB:  maxUploadMB,
	}
}

// UploadMedia handles POST /v1/media
// Body: multipart form with a "file" field and an optional "note" field
// holding the target note id.
func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "user not authenticated")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing 'file' field in form data")
	}

	maxBytes := h.maxUploadMB * 1024 * 1024
	if fileHeader.Size > maxBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file size exceeds maximum of %dMB", h.maxUploadMB))
	}

	fileHandle, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to open uploaded file")
	}
	defer fileHandle.Close()

	content, err := io.ReadAll(fileHandle)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read uploaded file")
	}

	noteID := c.FormValue("note")

	id, err := h.mediaService.SaveFile(c.Context(), content, userID, noteID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":  id,
		"url": "/v1/media/" + id,
	})
}

// GetMedia handles GET /v1/media/:id
// Upload ids are unguessable, so retrieval needs no authentication.
func (h *MediaHandler) GetMedia(c *fiber.Ctx) error {
	upload, err := h.mediaService.FindUploadByFilename(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	content, err := h.mediaService.GetFileContent(c.Context(), upload)
	if err != nil {
		return err
	}

	c.Set("Content-Type", upload.ContentType)
	return c.Send(content)
}

// DeleteMedia handles DELETE /v1/media/:id
// Only the uploader may delete an upload.
func (h *MediaHandler) DeleteMedia(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	upload, err := h.mediaService.FindUploadByFilename(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if upload.UserID != userID {
		return domain.ErrForbidden
	}

	if err := h.mediaService.DeleteFile(c.Context(), upload); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DetachMedia handles DELETE /v1/media/:id/note
// Orphans the upload without touching content or record.
func (h *MediaHandler) DetachMedia(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	upload, err := h.mediaService.FindUploadByFilename(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if upload.UserID != userID {
		return domain.ErrForbidden
	}

	updated, err := h.mediaService.RemoveNoteFromMediaUpload(c.Context(), upload)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// ListMyMedia handles GET /v1/me/media
func (h *MediaHandler) ListMyMedia(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	user, err := h.users.GetByID(c.Context(), userID)
	if err != nil {
		return err
	}

	uploads, err := h.mediaService.ListUploadsByUser(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"uploads": uploads})
}

// ListNoteMedia handles GET /v1/notes/:id/media
func (h *MediaHandler) ListNoteMedia(c *fiber.Ctx) error {
	note, err := h.notes.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	uploads, err := h.mediaService.ListUploadsByNote(c.Context(), note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"uploads": uploads})
}

// DeleteNote handles DELETE /v1/notes/:id
// Deleting a note orphans its uploads instead of cascading: every attached
// upload is detached before the note record goes away.
func (h *MediaHandler) DeleteNote(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	note, err := h.notes.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if note.OwnerID != userID {
		return domain.ErrForbidden
	}

	uploads, err := h.mediaService.ListUploadsByNote(c.Context(), note)
	if err != nil {
		return err
	}
	for _, upload := range uploads {
		if _, err := h.mediaService.RemoveNoteFromMediaUpload(c.Context(), upload); err != nil {
			return err
		}
	}

	if err := h.notes.Delete(c.Context(), note.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
