package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/magcho/hedgedoc/internal/config"
	"github.com/magcho/hedgedoc/internal/domain"
	"github.com/magcho/hedgedoc/internal/repository"
	"github.com/magcho/hedgedoc/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "e2e-test-secret"

var testPNG = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type testEnv struct {
	app   *fiber.App
	alice *domain.User
	bob   *domain.User
	note  *domain.Note
}

func setupEnv(t *testing.T) *testEnv {
	db, cleanup := SetupTestDB(t)
	t.Cleanup(cleanup)

	backend, err := repository.NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{MaxUploadSizeMB: 10},
		JWT:    config.JWTConfig{Secret: testJWTSecret},
		Media:  config.MediaConfig{Backend: config.BackendFilesystem},
	}

	app := server.NewApp(server.AppDependencies{
		Config:  cfg,
		MongoDB: db,
		Backend: backend,
	})

	ctx := context.Background()
	userRepo := repository.NewMongoUserRepository(db)
	noteRepo := repository.NewMongoNoteRepository(db)

	alice := &domain.User{UserName: "alice", DisplayName: "Alice"}
	require.NoError(t, userRepo.Create(ctx, alice))
	bob := &domain.User{UserName: "bob", DisplayName: "Bob"}
	require.NoError(t, userRepo.Create(ctx, bob))

	alias := "shared-doc"
	note := &domain.Note{Alias: &alias, OwnerID: alice.ID, Title: "Shared doc"}
	require.NoError(t, noteRepo.Create(ctx, note))

	return &testEnv{app: app, alice: alice, bob: bob, note: note}
}

func (e *testEnv) upload(t *testing.T, user *domain.User, content []byte, noteID string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "original-name.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	if noteID != "" {
		require.NoError(t, writer.WriteField("note", noteID))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/v1/media", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+SignSessionToken(t, testJWTSecret, user))

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) request(t *testing.T, user *domain.User, method, path string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+SignSessionToken(t, testJWTSecret, user))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeUploads(t *testing.T, resp *http.Response) []*domain.MediaUpload {
	t.Helper()

	var payload struct {
		Uploads []*domain.MediaUpload `json:"uploads"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotNil(t, payload.Uploads)
	return payload.Uploads
}

func TestUploadLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	env := setupEnv(t)

	// upload without a target note
	resp := env.upload(t, env.alice, testPNG, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/v1/media/"+created.ID, created.URL)

	// content reads back byte-for-byte, without auth
	resp = env.request(t, nil, "GET", created.URL)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, testPNG, got)

	// exactly this record is listed for alice, orphaned from the start
	resp = env.request(t, env.alice, "GET", "/v1/me/media")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	uploads := decodeUploads(t, resp)
	require.Len(t, uploads, 1)
	assert.Equal(t, created.ID, uploads[0].ID)
	assert.Equal(t, env.alice.ID, uploads[0].UserID)
	assert.Nil(t, uploads[0].NoteID)

	// deletion removes record and content
	resp = env.request(t, env.alice, "DELETE", created.URL)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = env.request(t, nil, "GET", created.URL)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.request(t, env.alice, "GET", "/v1/me/media")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeUploads(t, resp))
}

func TestUploadValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	env := setupEnv(t)

	t.Run("zero-byte buffer", func(t *testing.T) {
		resp := env.upload(t, env.alice, nil, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("zip archive", func(t *testing.T) {
		resp := env.upload(t, env.alice, []byte{'P', 'K', 0x03, 0x04, 0x14, 0x00, 0x00, 0x00}, "")
		assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
	})

	t.Run("no records after rejections", func(t *testing.T) {
		resp := env.request(t, env.alice, "GET", "/v1/me/media")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, decodeUploads(t, resp))
	})

	t.Run("unknown note", func(t *testing.T) {
		resp := env.upload(t, env.alice, testPNG, "missing-note-id")
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestNoteAttachmentFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	env := setupEnv(t)

	resp := env.upload(t, env.alice, testPNG, env.note.ID)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	// listed under the note
	resp = env.request(t, env.alice, "GET", "/v1/notes/"+env.note.ID+"/media")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	uploads := decodeUploads(t, resp)
	require.Len(t, uploads, 1)
	require.NotNil(t, uploads[0].NoteID)
	assert.Equal(t, env.note.ID, *uploads[0].NoteID)

	// detach orphans the upload but keeps the record
	resp = env.request(t, env.alice, "DELETE", "/v1/media/"+created.ID+"/note")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var detached domain.MediaUpload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detached))
	assert.Nil(t, detached.NoteID)

	resp = env.request(t, env.alice, "GET", "/v1/notes/"+env.note.ID+"/media")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeUploads(t, resp))

	resp = env.request(t, nil, "GET", "/v1/media/"+created.ID)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// detaching again is a no-op
	resp = env.request(t, env.alice, "DELETE", "/v1/media/"+created.ID+"/note")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDeleteNoteOrphansUploads(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	env := setupEnv(t)

	resp := env.upload(t, env.alice, testPNG, env.note.ID)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = env.request(t, env.alice, "DELETE", "/v1/notes/"+env.note.ID)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// upload survives as an orphan
	resp = env.request(t, env.alice, "GET", "/v1/me/media")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	uploads := decodeUploads(t, resp)
	require.Len(t, uploads, 1)
	assert.Nil(t, uploads[0].NoteID)
}

func TestOwnershipChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	env := setupEnv(t)

	resp := env.upload(t, env.alice, testPNG, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	// bob may not delete alice's upload
	resp = env.request(t, env.bob, "DELETE", "/v1/media/"+created.ID)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// unauthenticated mutation is rejected outright
	resp = env.request(t, nil, "DELETE", "/v1/media/"+created.ID)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
