package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// API keys are issued as pw_<keyID>_<secret>. The keyID half is public and
// used to look up the owning project; only a SHA-256 hash of the secret half
// is stored, so a database leak does not leak usable keys.
const apiKeyPrefix = "pw"

// ErrInvalidAPIKey is returned when an API key is malformed.
var ErrInvalidAPIKey = errors.New("invalid api key")

// GenerateAPIKey mints a new ingestion key. Returns the full plaintext key
// (shown to the operator exactly once), its public keyID, and the hash of the
// secret half for storage.
func GenerateAPIKey() (plaintext, keyID, secretHash string, err error) {
	id := make([]byte, 8)
	if _, err := rand.Read(id); err != nil {
		return "", "", "", err
	}
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return "", "", "", err
	}
	keyID = hex.EncodeToString(id)
	secretHex := hex.EncodeToString(secret)
	plaintext = apiKeyPrefix + "_" + keyID + "_" + secretHex
	return plaintext, keyID, HashAPIKeySecret(secretHex), nil
}

// ParseAPIKey splits a presented key into its keyID and secret halves.
// Returns ErrInvalidAPIKey on any malformed input; callers surface a generic
// authentication failure, never the parse detail.
func ParseAPIKey(key string) (keyID, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(key), "_")
	if len(parts) != 3 || parts[0] != apiKeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", ErrInvalidAPIKey
	}
	return parts[1], parts[2], nil
}

// HashAPIKeySecret returns a SHA-256 hash of the key's secret half, hex-encoded.
func HashAPIKeySecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// APIKeySecretEqual performs constant-time comparison of the provided secret's
// hash with the stored hash. Returns true only if they match.
func APIKeySecretEqual(providedSecret, storedHash string) bool {
	providedHash := HashAPIKeySecret(providedSecret)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}

// SecretEqual compares two shared secrets in constant time. Used for the
// retention sweep trigger's bearer secret.
func SecretEqual(provided, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
