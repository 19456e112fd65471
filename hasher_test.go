package auth_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/matthewhartstonge/argon2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-contacts-auth"
)

func TestBcryptHasher(t *testing.T) {
	digest, err := fastHasher.Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", digest)
	assert.True(t, strings.HasPrefix(digest, "$2"))

	assert.True(t, fastHasher.Verify("s3cret!", digest))
	assert.False(t, fastHasher.Verify("S3cret!", digest))
	assert.False(t, fastHasher.Verify("", digest))
}

func TestBcryptHasher_SaltedDigests(t *testing.T) {
	a := mustHash("same-password")
	b := mustHash("same-password")
	assert.NotEqual(t, a, b)
	assert.True(t, fastHasher.Verify("same-password", a))
	assert.True(t, fastHasher.Verify("same-password", b))
}

func TestBcryptHasher_EmptyPassword(t *testing.T) {
	_, err := fastHasher.Hash("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrNoEmptyString))
}

func TestBcryptHasher_MalformedDigest(t *testing.T) {
	assert.False(t, fastHasher.Verify("password", "not-a-bcrypt-digest"))
	assert.False(t, fastHasher.Verify("password", ""))
}

func TestComparePasswordAndHash(t *testing.T) {
	digest := mustHash("password")

	require.NoError(t, auth.ComparePasswordAndHash("password", digest))

	err := auth.ComparePasswordAndHash("nope", digest)
	assert.True(t, errors.Is(err, auth.ErrMismatchedHashAndPassword))

	err = auth.ComparePasswordAndHash("password", "garbage")
	require.Error(t, err)
	assert.False(t, auth.VerifyPassword("password", "garbage"))
}

func TestArgon2Hasher(t *testing.T) {
	cfg := argon2.DefaultConfig()
	cfg.MemoryCost = 8 * 1024
	cfg.TimeCost = 1
	hasher := auth.NewArgon2Hasher(cfg)

	digest, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$"))

	assert.True(t, hasher.Verify("correct horse", digest))
	assert.False(t, hasher.Verify("battery staple", digest))
	assert.False(t, hasher.Verify("correct horse", "$argon2id$broken"))
	assert.False(t, hasher.Verify("correct horse", ""))

	_, err = hasher.Hash("")
	assert.True(t, errors.Is(err, auth.ErrNoEmptyString))
}

func TestNewPasswordHasher_BcryptCost(t *testing.T) {
	h, err := auth.NewPasswordHasher("bcrypt", 5)
	require.NoError(t, err)
	assert.Equal(t, auth.BcryptHasher{Cost: 5}, h)

	digest, err := h.Hash("correct horse")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)
	assert.True(t, h.Verify("correct horse", digest))
}

func TestNewPasswordHasher(t *testing.T) {
	tests := []struct {
		name    string
		want    any
		wantErr bool
	}{
		{name: "", want: auth.BcryptHasher{}},
		{name: "bcrypt", want: auth.BcryptHasher{}},
		{name: " Argon2 ", want: auth.Argon2Hasher{}},
		{name: "md5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("hasher "+tt.name, func(t *testing.T) {
			h, err := auth.NewPasswordHasher(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, h)
		})
	}
}
