package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	HasherBcrypt = "bcrypt"
	HasherArgon2 = "argon2"
)

// BcryptHasher hashes with bcrypt. A Cost outside bcrypt's range uses DefaultBcryptCost.
type BcryptHasher struct {
	Cost int
}

// Hash implements PasswordHasher
func (h BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrNoEmptyString
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost(h.Cost))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return string(digest), nil
}

// Verify implements PasswordHasher
func (h BcryptHasher) Verify(plain, digest string) bool {
	return VerifyPassword(plain, digest)
}

// Argon2Hasher hashes with argon2id and stores PHC encoded digests.
type Argon2Hasher struct {
	config argon2.Config
}

// NewArgon2Hasher uses argon2.DefaultConfig unless a config is given.
func NewArgon2Hasher(cfg ...argon2.Config) Argon2Hasher {
	c := argon2.DefaultConfig()
	if len(cfg) > 0 {
		c = cfg[0]
	}
	return Argon2Hasher{config: c}
}

// Hash implements PasswordHasher
func (h Argon2Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrNoEmptyString
	}
	encoded, err := h.config.HashEncoded([]byte(plain))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return string(encoded), nil
}

// Verify implements PasswordHasher
func (h Argon2Hasher) Verify(plain, digest string) bool {
	if digest == "" {
		return false
	}
	ok, err := argon2.VerifyEncoded([]byte(plain), []byte(digest))
	if err != nil {
		return false
	}
	return ok
}

// NewPasswordHasher resolves a hasher by name, "bcrypt" when empty.
func NewPasswordHasher(name string, bcryptCost ...int) (PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HasherBcrypt:
		h := BcryptHasher{}
		if len(bcryptCost) > 0 {
			h.Cost = bcryptCost[0]
		}
		return h, nil
	case HasherArgon2:
		return NewArgon2Hasher(), nil
	default:
		return nil, errors.New("unknown password hasher", errors.CategoryBadInput).
			WithTextCode(TextCodeInvalidAuthConfig).
			WithMetadata(map[string]any{"hasher": name})
	}
}

var (
	_ PasswordHasher = BcryptHasher{}
	_ PasswordHasher = Argon2Hasher{}
)
