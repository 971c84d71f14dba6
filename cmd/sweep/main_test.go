package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magcho/hedgedoc/internal/domain"
)

type fakeRecordStore struct {
	ids map[string]bool
}

func (f *fakeRecordStore) GetByID(_ context.Context, id string) (*domain.MediaUpload, error) {
	if f.ids[id] {
		return &domain.MediaUpload{ID: id}, nil
	}
	return nil, fmt.Errorf("media upload %s: %w", id, domain.ErrNotInStore)
}

func TestCollectOrphans(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	cutoff := now.Add(-time.Hour)

	records := &fakeRecordStore{ids: map[string]bool{
		"recorded": true,
	}}

	artifacts := []domain.Artifact{
		{Name: "recorded.png", ModTime: now.Add(-2 * time.Hour)},
		{Name: "orphan.png", ModTime: now.Add(-2 * time.Hour)},
		{Name: "in-flight.png", ModTime: now.Add(-time.Minute)},
	}

	orphans, err := collectOrphans(ctx, records, artifacts, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan.png"}, orphans)
}

func TestCollectOrphansKeepsAllYoungArtifacts(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	// No records at all: without the age cutoff every artifact written by an
	// in-flight save would be classified as an orphan.
	records := &fakeRecordStore{ids: map[string]bool{}}

	artifacts := []domain.Artifact{
		{Name: "a.png", ModTime: now},
		{Name: "b.png", ModTime: now.Add(-30 * time.Minute)},
	}

	orphans, err := collectOrphans(ctx, records, artifacts, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, orphans)
}
