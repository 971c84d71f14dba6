// Command sweep reconciles physical storage with the media record store.
//
// A crash between a backend save and the record insert leaves an artifact no
// record points to. Such orphans are harmless but accumulate; this tool lists
// the backend's artifacts, keeps every one whose derived upload id has a
// record, and deletes the rest. Records are never touched.
//
// Artifacts younger than -min-age are always kept: against a live server, an
// artifact may exist moments before its record does, and deleting it would
// leave the record pointing at nothing.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/magcho/hedgedoc/internal/config"
	"github.com/magcho/hedgedoc/internal/domain"
	"github.com/magcho/hedgedoc/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const deleteConcurrency = 8

func main() {
	dryRun := flag.Bool("dry-run", false, "report orphaned artifacts without deleting them")
	minAge := flag.Duration("min-age", time.Hour, "leave artifacts younger than this alone")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDB.Database)
	mediaRepo := repository.NewMongoMediaRepository(db)

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s storage backend: %v", cfg.Media.Backend, err)
	}

	lister, ok := backend.(domain.ArtifactLister)
	if !ok {
		log.Fatalf("Backend %s cannot enumerate artifacts", cfg.Media.Backend)
	}

	artifacts, err := lister.ListArtifacts(ctx)
	if err != nil {
		log.Fatalf("Failed to list artifacts: %v", err)
	}
	log.Printf("Scanning %d artifacts for orphans...", len(artifacts))

	orphans, err := collectOrphans(ctx, mediaRepo, artifacts, time.Now().Add(-*minAge))
	if err != nil {
		log.Fatalf("Failed to classify artifacts: %v", err)
	}

	if len(orphans) == 0 {
		log.Println("No orphaned artifacts found")
		return
	}
	if *dryRun {
		for _, name := range orphans {
			log.Printf("Would delete orphaned artifact %s", name)
		}
		log.Printf("Dry run: %d orphaned artifacts left in place", len(orphans))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, name := range orphans {
		g.Go(func() error {
			// no record, so no backend data; backends fall back to the name
			if err := backend.DeleteFile(gctx, name, ""); err != nil && !errors.Is(err, domain.ErrArtifactMissing) {
				return err
			}
			log.Printf("Deleted orphaned artifact %s", name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	log.Printf("Sweep complete: %d orphaned artifacts removed", len(orphans))
}

// recordStore is the slice of the media repository the sweep needs.
type recordStore interface {
	GetByID(ctx context.Context, id string) (*domain.MediaUpload, error)
}

// collectOrphans returns the names of artifacts with no backing record.
// Artifacts modified after cutoff are skipped: their record may not be
// persisted yet.
func collectOrphans(ctx context.Context, records recordStore, artifacts []domain.Artifact, cutoff time.Time) ([]string, error) {
	var orphans []string
	for _, artifact := range artifacts {
		if artifact.ModTime.After(cutoff) {
			continue
		}
		// artifact names are "<upload id><ext>"
		id := strings.TrimSuffix(artifact.Name, filepath.Ext(artifact.Name))
		_, err := records.GetByID(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotInStore) {
			return nil, err
		}
		orphans = append(orphans, artifact.Name)
	}
	return orphans, nil
}

func newBackend(ctx context.Context, cfg *config.Config) (domain.StorageBackend, error) {
	switch cfg.Media.Backend {
	case config.BackendS3:
		return repository.NewS3Backend(ctx, cfg.S3)
	default:
		return repository.NewFilesystemBackend(cfg.Media.UploadDir)
	}
}
