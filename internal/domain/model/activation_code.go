package model

import (
	"crypto/rand"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"flash-code/internal/domain"
)

// codeAlphabet avoids ambiguous characters like O/0 and I/1 so codes
// survive being read over the phone or retyped from a screenshot.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratedCodeLength is the length of machine-generated codes.
const GeneratedCodeLength = 8

// MinCodeLength is the minimum accepted length for custom codes.
const MinCodeLength = 3

// ActivationCode is a single-use token that gates registration.
type ActivationCode struct {
	ID        string
	Code      string
	IsUsed    bool
	UsedBy    *string    // Pointer to allow for NULL
	UsedAt    *time.Time // Pointer to allow for NULL
	CreatedBy string
	CreatedAt time.Time
}

// NewActivationCode builds an unused code record attributed to the creating admin.
// The code string must already be normalized.
func NewActivationCode(code, createdBy string) (*ActivationCode, error) {
	if len(code) < MinCodeLength {
		return nil, domain.ErrInvalidArgument
	}
	if createdBy == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &ActivationCode{
		ID:        uuid.NewString(),
		Code:      code,
		IsUsed:    false,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}, nil
}

// Redeemed reports whether the record satisfies the redeemed-state invariant:
// IsUsed is true iff both UsedBy and UsedAt are set.
func (c *ActivationCode) Redeemed() bool {
	return c.IsUsed && c.UsedBy != nil && c.UsedAt != nil
}

// NormalizeCode canonicalizes user input: surrounding whitespace is dropped
// and the code is upper-cased so redemption is case-insensitive.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// GenerateCode creates a random 8-character activation code.
// Uniqueness is enforced by the database constraint, not here.
func GenerateCode() (string, error) {
	buffer := make([]byte, GeneratedCodeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = codeAlphabet[int(buffer[i])%len(codeAlphabet)]
	}
	return string(buffer), nil
}
