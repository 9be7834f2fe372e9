package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/romvault/internal/common"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 50_000
	DefaultSaltLength = 16
	digestLength      = 32 // SHA-256
)

// legacyPrefixes are leading schemes of hash formats this service used to
// accept or that other tools produce. Such hashes are never verified.
var legacyPrefixes = []string{"$", "pbkdf2:", "scrypt:", "sha1$", "sha256$", "md5$"}

// Hasher derives and verifies salted PBKDF2-HMAC-SHA256 password digests.
//
// Stored format: <base64 salt>:<base64 digest> (standard padded base64).
// The iteration count is not stored, so changing it invalidates every
// stored hash.
type Hasher struct {
	iterations int
	saltLength int
}

// NewHasher returns a Hasher with production parameters.
func NewHasher() *Hasher {
	return &Hasher{iterations: DefaultIterations, saltLength: DefaultSaltLength}
}

// Hash generates a fresh salt and returns the encoded salt and digest.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := randRead(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	digest := h.derive(password, salt)

	b64 := base64.StdEncoding
	return b64.EncodeToString(salt) + ":" + b64.EncodeToString(digest), nil
}

// Verify reports whether password matches stored.
// It returns (false, common.ErrLegacyHash) for a recognized legacy format and
// (false, common.ErrInvalidHash) for anything malformed; both mean the login
// must be refused. A plain mismatch is (false, nil).
func (h *Hasher) Verify(password, stored string) (bool, error) {
	if IsLegacyHash(stored) {
		return false, common.ErrLegacyHash
	}

	salt, expected, err := decodeHash(stored)
	if err != nil {
		return false, err
	}

	digest := h.derive(password, salt)

	return subtle.ConstantTimeCompare(digest, expected) == 1, nil
}

// DecoyHash is a well-formed stored hash that matches no password. Verifying
// against it costs the same as verifying a real user's hash.
func DecoyHash() string {
	b64 := base64.StdEncoding
	return b64.EncodeToString(make([]byte, DefaultSaltLength)) + ":" + b64.EncodeToString(make([]byte, digestLength))
}

func (h *Hasher) derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, h.iterations, digestLength, sha256.New)
}

// IsLegacyHash reports whether stored uses a scheme that needs migration
// (bcrypt, modular crypt strings, werkzeug/django style prefixes).
func IsLegacyHash(stored string) bool {
	if _, err := bcrypt.Cost([]byte(stored)); err == nil {
		return true
	}
	for _, p := range legacyPrefixes {
		if strings.HasPrefix(stored, p) {
			return true
		}
	}
	return false
}

func decodeHash(stored string) (salt, digest []byte, err error) {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return nil, nil, common.ErrInvalidHash
	}

	b64 := base64.StdEncoding
	salt, err = b64.DecodeString(parts[0])
	if err != nil || len(salt) < DefaultSaltLength {
		return nil, nil, common.ErrInvalidHash
	}
	digest, err = b64.DecodeString(parts[1])
	if err != nil || len(digest) != digestLength {
		return nil, nil, common.ErrInvalidHash
	}

	return salt, digest, nil
}
