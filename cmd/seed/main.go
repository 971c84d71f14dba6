// Command seed populates MongoDB with demo users and notes for manual testing.
package main

import (
	"context"
	"log"
	"time"

	"github.com/magcho/hedgedoc/internal/config"
	"github.com/magcho/hedgedoc/internal/domain"
	"github.com/magcho/hedgedoc/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB.Database)
	userRepo := repository.NewMongoUserRepository(db)
	noteRepo := repository.NewMongoNoteRepository(db)

	users := []*domain.User{
		{UserName: "hardcoded", DisplayName: "Test User 1"},
		{UserName: "hardcoded_2", DisplayName: "Test User 2"},
		{UserName: "hardcoded_3", DisplayName: "Test User 3"},
	}
	aliases := []string{"test", "test2", "test3"}

	for i, user := range users {
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatalf("Failed to seed user %s: %v", user.UserName, err)
		}

		alias := aliases[i]
		note := &domain.Note{
			Alias:   &alias,
			OwnerID: user.ID,
			Title:   "Test note " + alias,
		}
		if err := noteRepo.Create(ctx, note); err != nil {
			log.Fatalf("Failed to seed note %s: %v", alias, err)
		}
		log.Printf("Seeded user %s with note %s (id %s)", user.UserName, alias, note.ID)
	}

	log.Println("Seed complete")
}
