package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	fieldID               = "id"
	fieldEmail            = "email"
	fieldPasswordHash     = "password_hash"
	fieldRefreshTokenHash = "refresh_token_hash"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
	fieldDeletedAt        = "deleted_at"
)

// setRefreshScript writes the hash only to an existing, non-deleted user.
var setRefreshScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 and redis.call('HEXISTS', KEYS[1], 'deleted_at') == 0 then
	redis.call('HSET', KEYS[1], 'refresh_token_hash', ARGV[1], 'updated_at', ARGV[2])
	return 1
end
return 0
`)

// RedisStore keeps user records as Redis hashes. Email uniqueness is enforced
// with SETNX on a per-email index key.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// userKey generates the Redis key for a user record
func userKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id.String())
}

// emailKey generates the Redis key for the email index
func emailKey(email string) string {
	return fmt.Sprintf("user_email:%s", NormalizeEmail(email))
}

func (s *RedisStore) Create(ctx context.Context, u *User) (*User, error) {
	email := NormalizeEmail(u.Email)

	claimed, err := s.client.SetNX(ctx, emailKey(email), u.ID.String(), 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve email: %w", err)
	}
	if !claimed {
		return nil, ErrDuplicateEmail
	}

	now := s.now().UTC()
	values := []any{
		fieldID, u.ID.String(),
		fieldEmail, email,
		fieldPasswordHash, u.PasswordHash,
		fieldCreatedAt, now.Format(time.RFC3339Nano),
		fieldUpdatedAt, now.Format(time.RFC3339Nano),
	}
	if u.RefreshTokenHash != nil {
		values = append(values, fieldRefreshTokenHash, *u.RefreshTokenHash)
	}

	if err := s.client.HSet(ctx, userKey(u.ID), values...).Err(); err != nil {
		// release the email so a retry is possible
		s.client.Del(ctx, emailKey(email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &User{
		ID:               u.ID,
		Email:            email,
		PasswordHash:     u.PasswordHash,
		RefreshTokenHash: cloneString(u.RefreshTokenHash),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (s *RedisStore) FindActiveByEmail(ctx context.Context, email string) (*User, error) {
	rawID, err := s.client.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt email index for %q: %w", email, err)
	}

	return s.FindActiveByID(ctx, id)
}

func (s *RedisStore) FindActiveByID(ctx context.Context, id uuid.UUID) (*User, error) {
	data, err := s.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	u, err := parseUserHash(data)
	if err != nil {
		return nil, err
	}
	if !u.IsActive() {
		return nil, ErrNotFound
	}

	return u, nil
}

func (s *RedisStore) SetRefreshHash(ctx context.Context, id uuid.UUID, hash *string) error {
	if hash == nil {
		if err := s.client.HDel(ctx, userKey(id), fieldRefreshTokenHash).Err(); err != nil {
			return fmt.Errorf("failed to clear refresh token hash: %w", err)
		}
		return nil
	}

	updated, err := setRefreshScript.Run(ctx, s.client, []string{userKey(id)},
		*hash, s.now().UTC().Format(time.RFC3339Nano)).Int()
	if err != nil {
		return fmt.Errorf("failed to set refresh token hash: %w", err)
	}
	if updated == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *RedisStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	u, err := s.FindActiveByID(ctx, id)
	if err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, userKey(id), fieldDeletedAt, now, fieldUpdatedAt, now)
		pipe.HDel(ctx, userKey(id), fieldRefreshTokenHash)
		pipe.Del(ctx, emailKey(u.Email))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

func parseUserHash(data map[string]string) (*User, error) {
	id, err := uuid.Parse(data[fieldID])
	if err != nil {
		return nil, fmt.Errorf("corrupt user record: %w", err)
	}

	u := &User{
		ID:           id,
		Email:        data[fieldEmail],
		PasswordHash: data[fieldPasswordHash],
	}
	if h, ok := data[fieldRefreshTokenHash]; ok && h != "" {
		u.RefreshTokenHash = &h
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, data[fieldCreatedAt])
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, data[fieldUpdatedAt])
	if raw, ok := data[fieldDeletedAt]; ok && raw != "" {
		deletedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt user record: %w", err)
		}
		u.DeletedAt = &deletedAt
	}

	return u, nil
}
