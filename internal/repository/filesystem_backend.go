package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magcho/hedgedoc/internal/domain"
)

// filesystemBackendData is the locator blob this backend stores per upload.
// Only this backend reads it back.
type filesystemBackendData struct {
	Path string `json:"path"`
}

// FilesystemBackend implements domain.StorageBackend on a local directory.
type FilesystemBackend struct {
	uploadDir string
}

// NewFilesystemBackend creates the upload directory if needed.
func NewFilesystemBackend(uploadDir string) (*FilesystemBackend, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", uploadDir, err)
	}
	return &FilesystemBackend{uploadDir: uploadDir}, nil
}

// SaveFile writes content to a sibling temp file and renames it into place,
// so a reachable artifact either has the full content or does not exist.
func (b *FilesystemBackend) SaveFile(_ context.Context, content []byte, fileName string) (string, string, error) {
	name, err := sanitizeFileName(fileName)
	if err != nil {
		return "", "", err
	}
	filePath := filepath.Join(b.uploadDir, name)

	tmp, err := os.CreateTemp(b.uploadDir, name+".tmp-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("failed to move file into place: %w", err)
	}

	backendData, err := json.Marshal(filesystemBackendData{Path: filePath})
	if err != nil {
		os.Remove(filePath)
		return "", "", fmt.Errorf("failed to encode backend data: %w", err)
	}
	return name, string(backendData), nil
}

func (b *FilesystemBackend) GetFile(_ context.Context, fileName string, backendData string) ([]byte, error) {
	filePath, err := b.resolvePath(fileName, backendData)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrArtifactMissing
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

func (b *FilesystemBackend) DeleteFile(_ context.Context, fileName string, backendData string) error {
	filePath, err := b.resolvePath(fileName, backendData)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrArtifactMissing
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ListArtifacts implements domain.ArtifactLister for the orphan sweep.
func (b *FilesystemBackend) ListArtifacts(_ context.Context) ([]domain.Artifact, error) {
	entries, err := os.ReadDir(b.uploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	artifacts := make([]domain.Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		artifacts = append(artifacts, domain.Artifact{Name: entry.Name(), ModTime: info.ModTime()})
	}
	return artifacts, nil
}

// resolvePath prefers the recorded backend data and falls back to the file
// name for records written before the path was recorded.
func (b *FilesystemBackend) resolvePath(fileName string, backendData string) (string, error) {
	if backendData != "" {
		var data filesystemBackendData
		if err := json.Unmarshal([]byte(backendData), &data); err != nil {
			return "", fmt.Errorf("failed to decode backend data: %w", err)
		}
		if data.Path != "" {
			return data.Path, nil
		}
	}

	name, err := sanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.uploadDir, name), nil
}

// sanitizeFileName strips any path fragments from the proposed name. Names
// are derived from generated ids, so anything else is rejected outright.
func sanitizeFileName(fileName string) (string, error) {
	name := filepath.Base(fileName)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(fileName, `/\`) {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	return name, nil
}
