package domain

import (
	"context"
	"time"
)

// User is the uploader identity. Users are managed by the platform's account
// layer; the media subsystem only resolves and references them.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	UserName    string    `bson:"user_name" json:"userName"`
	DisplayName string    `bson:"display_name" json:"displayName"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserRepository resolves user references.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUserName(ctx context.Context, userName string) (*User, error)
}
