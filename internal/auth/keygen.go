package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
)

// Key format: looply_{base64url(24 random bytes)}
// Example: looply_3q2-7wABCD_efGhIJkLmNoPqRsTuVwXyZ0123
const (
	KeyPrefix    = "looply_"
	KeyPrefixLen = 12 // Visible prefix length, "looply_" plus five secret chars
	keySecretLen = 24 // Random bytes before encoding
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	// keyFormatRegex validates the key format. 24 bytes encode to 32 chars.
	keyFormatRegex = regexp.MustCompile(`^looply_[A-Za-z0-9_-]{32}$`)
)

// GeneratedKey contains the parts of a newly generated API key.
type GeneratedKey struct {
	Plaintext string // Full key (show once only)
	Hash      string // Argon2id hash for storage
	Prefix    string // 12-char visible prefix
}

// GenerateAPIKey creates a new API key.
// Returns the plaintext key (to show once), hash (to store), and prefix (for display).
func GenerateAPIKey() (*GeneratedKey, error) {
	secret := make([]byte, keySecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := KeyPrefix + base64.RawURLEncoding.EncodeToString(secret)

	hash, err := HashKey(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    plaintext[:KeyPrefixLen],
	}, nil
}

// ValidateKeyFormat checks if the key matches the expected format.
func ValidateKeyFormat(key string) bool {
	return keyFormatRegex.MatchString(key)
}
