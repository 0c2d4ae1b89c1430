package password

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrTooShort = errors.New("password too short")
	ErrTooLong  = errors.New("password too long")
)

type Policy struct {
	MinLength int
	// MaxLength of 0 means no upper bound.
	MaxLength int
}

var DefaultPolicy = Policy{MinLength: 6, MaxLength: 100}

func (p Policy) Validate(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < p.MinLength {
		return ErrTooShort
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return ErrTooLong
	}
	return nil
}

type Hasher struct {
	Cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{Cost: cost}
}

// bcrypt reads at most 72 bytes of input.
const bcryptMaxInput = 72

// secret is what bcrypt actually sees. Inputs over bcrypt's limit are
// digested first, so every accepted length hashes and no two long passwords
// collide on a shared 72-byte prefix.
func secret(pw string) []byte {
	if len(pw) <= bcryptMaxInput {
		return []byte(pw)
	}
	sum := sha256.Sum256([]byte(pw))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

func (h *Hasher) Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret(pw), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify is false for a wrong password and for a digest bcrypt cannot parse.
func (h *Hasher) Verify(pw, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), secret(pw)) == nil
}
