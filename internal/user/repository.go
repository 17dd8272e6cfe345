package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-auth-api/internal/database"
)

const uniqueViolation = "23505"

// Repository is the Postgres credential store, built on bun. Soft-deleted
// rows are filtered by the model's soft_delete column.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a complete user record, including its initial refresh hash.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	dbUser := &database.User{
		ID:               u.ID,
		Email:            NormalizeEmail(u.Email),
		PasswordHash:     u.PasswordHash,
		RefreshTokenHash: u.RefreshTokenHash,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindActiveByEmail retrieves a non-deleted user by email
func (r *Repository) FindActiveByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindActiveByID retrieves a non-deleted user by ID
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// SetRefreshHash overwrites the stored refresh token hash. A nil hash clears
// it only where one is set, so clearing an empty session is a no-op.
func (r *Repository) SetRefreshHash(ctx context.Context, id uuid.UUID, hash *string) error {
	if hash == nil {
		_, err := r.db.NewUpdate().
			Model((*database.User)(nil)).
			Set("refresh_token_hash = NULL").
			Set("updated_at = NOW()").
			Where("id = ?", id).
			Where("refresh_token_hash IS NOT NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear refresh token hash: %w", err)
		}
		return nil
	}

	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("refresh_token_hash = ?", *hash).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set refresh token hash: %w", err)
	}

	return requireRow(result)
}

// SoftDelete marks the user deleted and drops any session.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("deleted_at = NOW()").
		Set("refresh_token_hash = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	u := &User{
		ID:               dbu.ID,
		Email:            dbu.Email,
		PasswordHash:     dbu.PasswordHash,
		RefreshTokenHash: dbu.RefreshTokenHash,
		CreatedAt:        dbu.CreatedAt,
		UpdatedAt:        dbu.UpdatedAt,
	}
	if !dbu.DeletedAt.IsZero() {
		deletedAt := dbu.DeletedAt
		u.DeletedAt = &deletedAt
	}
	return u
}
