package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id parameters for newly hashed passwords.
const (
	argonMemory      = 19 * 1024 // KiB
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

const argonPrefix = "$argon2id$"

var errMalformedDigest = errors.New("cryptox: malformed password digest")

// PasswordHasher hashes and verifies user passwords. New digests are
// Argon2id in PHC string form with a random per-call salt; bcrypt digests
// carried over from older deployments still verify.
//
// The pepper is appended to the password before Argon2id derivation and is
// never stored alongside the digest. It is not applied to bcrypt digests,
// which were created without one.
type PasswordHasher struct {
	pepper string
}

func NewPasswordHasher(pepper string) *PasswordHasher {
	return &PasswordHasher{pepper: pepper}
}

// Hash returns a PHC-format Argon2id digest of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password+h.pepper), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest. Unknown or malformed
// digests never match.
func (h *PasswordHasher) Verify(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, argonPrefix):
		return h.verifyArgon2(password, digest) == nil
	case isBcrypt(digest):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether digest should be replaced with a fresh Hash
// after the next successful Verify.
func (h *PasswordHasher) NeedsRehash(digest string) bool {
	if isBcrypt(digest) {
		return true
	}

	p, err := parseArgon2(digest)
	if err != nil {
		return false
	}
	return p.memory != argonMemory || p.iterations != argonIterations || p.parallelism != argonParallelism
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

type argon2Digest struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// parseArgon2 splits "$argon2id$v=19$m=..,t=..,p=..$salt$key".
func parseArgon2(digest string) (argon2Digest, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return argon2Digest{}, errMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argon2Digest{}, errMalformedDigest
	}

	var d argon2Digest
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.memory, &d.iterations, &d.parallelism); err != nil {
		return argon2Digest{}, errMalformedDigest
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return argon2Digest{}, errMalformedDigest
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.key) == 0 {
		return argon2Digest{}, errMalformedDigest
	}
	return d, nil
}

func (h *PasswordHasher) verifyArgon2(password, digest string) error {
	d, err := parseArgon2(digest)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password+h.pepper),
		d.salt,
		d.iterations,
		d.memory,
		d.parallelism,
		uint32(len(d.key)), // #nosec G115 - key length comes from a decoded digest
	)
	if subtle.ConstantTimeCompare(computed, d.key) != 1 {
		return errors.New("cryptox: password mismatch")
	}
	return nil
}
