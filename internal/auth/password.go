package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

var errMalformedHash = errors.New("malformed argon2id hash")

// Upper bounds accepted from stored hashes.
const (
	maxArgon2Memory     = 1024 * 1024 // 1 GiB in KiB
	maxArgon2Iterations = 64
	maxArgon2KeyLength  = 128
	maxArgon2SaltLength = 128
)

// Argon2Params are the argon2id cost parameters used for new hashes.
// Verification always uses the parameters encoded in the stored hash.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns 64 MiB, 3 iterations, 2 lanes.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher hashes secrets with argon2id. At most `concurrency` hashes run
// at once; callers beyond that wait on their context.
type Argon2Hasher struct {
	params Argon2Params
	sem    *semaphore.Weighted
}

// Validate rejects parameters argon2 cannot run with or that exceed the
// limits enforced on stored hashes.
func (p Argon2Params) Validate() error {
	switch {
	case p.Iterations < 1 || p.Iterations > maxArgon2Iterations:
		return fmt.Errorf("argon2 iterations must be between 1 and %d, got %d", maxArgon2Iterations, p.Iterations)
	case p.Parallelism < 1:
		return errors.New("argon2 parallelism must be at least 1")
	case p.Memory < 8*uint32(p.Parallelism) || p.Memory > maxArgon2Memory:
		return fmt.Errorf("argon2 memory must be between %d and %d KiB, got %d", 8*uint32(p.Parallelism), maxArgon2Memory, p.Memory)
	case p.SaltLength < 8 || p.SaltLength > maxArgon2SaltLength:
		return fmt.Errorf("argon2 salt length must be between 8 and %d, got %d", maxArgon2SaltLength, p.SaltLength)
	case p.KeyLength < 16 || p.KeyLength > maxArgon2KeyLength:
		return fmt.Errorf("argon2 key length must be between 16 and %d, got %d", maxArgon2KeyLength, p.KeyLength)
	}
	return nil
}

// NewArgon2Hasher creates a hasher. A concurrency of zero or less means GOMAXPROCS.
func NewArgon2Hasher(params Argon2Params, concurrency int64) (*Argon2Hasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = int64(runtime.GOMAXPROCS(0))
	}
	return &Argon2Hasher{
		params: params,
		sem:    semaphore.NewWeighted(concurrency),
	}, nil
}

// Hash returns $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<hash>
func (h *Argon2Hasher) Hash(ctx context.Context, secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := h.derive(ctx, secret, salt, &h.params)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches the encoded hash.
func (h *Argon2Hasher) Verify(ctx context.Context, encoded, secret string) bool {
	params, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false
	}

	got, err := h.derive(ctx, secret, salt, params)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(want, got) == 1
}

// derive runs argon2id while holding one semaphore slot.
func (h *Argon2Hasher) derive(ctx context.Context, secret string, salt []byte, params *Argon2Params) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)

	return argon2.IDKey(
		[]byte(secret),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	), nil
}

func decodeHash(encoded string) (*Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, errMalformedHash
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	params := &Argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return nil, nil, nil, errMalformedHash
	}
	// argon2.IDKey panics on zero rounds or lanes
	if params.Iterations < 1 || params.Parallelism < 1 || params.Memory < 1 {
		return nil, nil, nil, errMalformedHash
	}
	if params.Iterations > maxArgon2Iterations || params.Memory > maxArgon2Memory {
		return nil, nil, nil, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, errMalformedHash
	}
	hash, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil || len(hash) == 0 || len(hash) > maxArgon2KeyLength {
		return nil, nil, nil, errMalformedHash
	}

	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(hash))

	return params, salt, hash, nil
}
