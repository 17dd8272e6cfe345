package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun model for the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               uuid.UUID `bun:"id,pk,type:uuid"`
	Email            string    `bun:"email,notnull"`
	PasswordHash     string    `bun:"password_hash,notnull"`
	RefreshTokenHash *string   `bun:"refresh_token_hash"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt        time.Time `bun:"deleted_at,soft_delete,nullzero"`
}
