package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockRedisStore() (*RedisStore, redismock.ClientMock) {
	client, mock := redismock.NewClientMock()
	s := NewRedisStore(client)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func TestRedisStore_Create(t *testing.T) {
	s, mock := newMockRedisStore()
	id := uuid.New()
	hash := "rt-hash"
	ts := fixedNow.Format(time.RFC3339Nano)

	mock.ExpectSetNX("user_email:a@example.com", id.String(), 0).SetVal(true)
	mock.ExpectHSet(userKey(id),
		"id", id.String(),
		"email", "a@example.com",
		"password_hash", "pw-hash",
		"created_at", ts,
		"updated_at", ts,
		"refresh_token_hash", hash,
	).SetVal(6)

	u, err := s.Create(context.Background(), &User{ID: id, Email: "A@example.com", PasswordHash: "pw-hash", RefreshTokenHash: &hash})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	assert.Equal(t, fixedNow, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Create_DuplicateEmail(t *testing.T) {
	s, mock := newMockRedisStore()
	id := uuid.New()

	mock.ExpectSetNX("user_email:a@example.com", id.String(), 0).SetVal(false)

	_, err := s.Create(context.Background(), &User{ID: id, Email: "a@example.com", PasswordHash: "pw"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Create_ReleasesEmailOnFailure(t *testing.T) {
	s, mock := newMockRedisStore()
	id := uuid.New()
	ts := fixedNow.Format(time.RFC3339Nano)

	mock.ExpectSetNX("user_email:a@example.com", id.String(), 0).SetVal(true)
	mock.ExpectHSet(userKey(id),
		"id", id.String(),
		"email", "a@example.com",
		"password_hash", "pw",
		"created_at", ts,
		"updated_at", ts,
	).SetErr(errors.New("connection reset"))
	mock.ExpectDel("user_email:a@example.com").SetVal(1)

	_, err := s.Create(context.Background(), &User{ID: id, Email: "a@example.com", PasswordHash: "pw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_FindActiveByEmail(t *testing.T) {
	s, mock := newMockRedisStore()
	id := uuid.New()
	ts := fixedNow.Format(time.RFC3339Nano)

	mock.ExpectGet("user_email:a@example.com").SetVal(id.String())
	mock.ExpectHGetAll(userKey(id)).SetVal(map[string]string{
		"id":                 id.String(),
		"email":              "a@example.com",
		"password_hash":      "pw-hash",
		"refresh_token_hash": "rt-hash",
		"created_at":         ts,
		"updated_at":         ts,
	})

	u, err := s.FindActiveByEmail(context.Background(), "A@Example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.True(t, u.HasSession())
	assert.Equal(t, fixedNow, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_FindActiveByEmail_Unknown(t *testing.T) {
	s, mock := newMockRedisStore()

	mock.ExpectGet("user_email:nobody@example.com").RedisNil()

	_, err := s.FindActiveByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_FindActiveByID_Deleted(t *testing.T) {
	s, mock := newMockRedisStore()
	id := uuid.New()
	ts := fixedNow.Format(time.RFC3339Nano)

	mock.ExpectHGetAll(userKey(id)).SetVal(map[string]string{
		"id":         id.String(),
		"email":      "a@example.com",
		"deleted_at": ts,
	})

	_, err := s.FindActiveByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SetRefreshHash(t *testing.T) {
	id := uuid.New()
	hash := "rt-hash"
	ts := fixedNow.Format(time.RFC3339Nano)

	t.Run("sets hash on active user", func(t *testing.T) {
		s, mock := newMockRedisStore()
		mock.ExpectEvalSha(setRefreshScript.Hash(), []string{userKey(id)}, hash, ts).SetVal(int64(1))

		require.NoError(t, s.SetRefreshHash(context.Background(), id, &hash))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing or deleted user", func(t *testing.T) {
		s, mock := newMockRedisStore()
		mock.ExpectEvalSha(setRefreshScript.Hash(), []string{userKey(id)}, hash, ts).SetVal(int64(0))

		err := s.SetRefreshHash(context.Background(), id, &hash)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clear", func(t *testing.T) {
		s, mock := newMockRedisStore()
		mock.ExpectHDel(userKey(id), "refresh_token_hash").SetVal(0)

		require.NoError(t, s.SetRefreshHash(context.Background(), id, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisStore_SoftDelete(t *testing.T) {
	s, mock := newMockRedisStore()
	id := uuid.New()
	ts := fixedNow.Format(time.RFC3339Nano)

	mock.ExpectHGetAll(userKey(id)).SetVal(map[string]string{
		"id":            id.String(),
		"email":         "a@example.com",
		"password_hash": "pw",
		"created_at":    ts,
		"updated_at":    ts,
	})
	mock.ExpectTxPipeline()
	mock.ExpectHSet(userKey(id), "deleted_at", ts, "updated_at", ts).SetVal(1)
	mock.ExpectHDel(userKey(id), "refresh_token_hash").SetVal(0)
	mock.ExpectDel("user_email:a@example.com").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, s.SoftDelete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
