package ssn

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	keyLength        = 32
	ivLength         = 16
	minSecretLength  = 32
)

// ErrEncryptFailed and ErrDecryptFailed are deliberately generic. Internal
// detail (which field was malformed, whether the tag failed) is logged
// server-side only, never surfaced, to avoid oracle attacks.
var (
	ErrEncryptFailed = errors.New("ssn: encryption failed")
	ErrDecryptFailed = errors.New("ssn: decryption failed")
)

// EncryptedSSN is the storage form of a resident registration number:
// AES-256-GCM ciphertext, IV, and authentication tag, each base64-encoded,
// plus the key generation that produced them.
type EncryptedSSN struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	Tag       string `json:"tag"`
	Version   int    `json:"version"`
}

// Cipher encrypts and decrypts resident registration numbers. Keys are
// derived once per version via PBKDF2 and cached for the process lifetime,
// so the 100k-iteration derivation cost is paid at startup, not per call.
type Cipher struct {
	mu      sync.RWMutex
	aeads   map[int]cipher.AEAD
	version int
	logger  zerolog.Logger
}

// NewCipher derives the current encryption key from secret and salt
// (PBKDF2-SHA256, 100000 iterations, 32-byte key) and returns a ready
// Cipher. A missing or short secret is a fatal configuration error.
func NewCipher(secret, salt string, version int, logger zerolog.Logger) (*Cipher, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("ssn cipher: encryption secret must be at least %d characters, got %d", minSecretLength, len(secret))
	}
	if version < 1 {
		return nil, fmt.Errorf("ssn cipher: key version must be >= 1, got %d", version)
	}

	aead, err := deriveAEAD(secret, salt)
	if err != nil {
		return nil, fmt.Errorf("ssn cipher: %w", err)
	}

	return &Cipher{
		aeads:   map[int]cipher.AEAD{version: aead},
		version: version,
		logger:  logger,
	}, nil
}

// AddPreviousKey registers a retired secret so ciphertexts produced under an
// earlier key generation remain decryptable after rotation.
func (c *Cipher) AddPreviousKey(secret, salt string, version int) error {
	if len(secret) < minSecretLength {
		return fmt.Errorf("ssn cipher: previous key v%d: secret must be at least %d characters", version, minSecretLength)
	}

	aead, err := deriveAEAD(secret, salt)
	if err != nil {
		return fmt.Errorf("ssn cipher: previous key v%d: %w", version, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.aeads[version] = aead
	return nil
}

// CurrentVersion returns the key generation used for new encryptions.
func (c *Cipher) CurrentVersion() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Encrypt encrypts a plaintext resident registration number with the current
// key. A fresh random 16-byte IV is generated on every call.
func (c *Cipher) Encrypt(plaintext string) (*EncryptedSSN, error) {
	c.mu.RLock()
	aead := c.aeads[c.version]
	version := c.version
	c.mu.RUnlock()

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		c.logger.Error().Err(err).Msg("ssn encrypt: generate iv")
		return nil, ErrEncryptFailed
	}

	// Seal appends the GCM tag to the ciphertext; split it back out so the
	// tag is stored as its own column.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - aead.Overhead()

	return &EncryptedSSN{
		Encrypted: base64.StdEncoding.EncodeToString(sealed[:tagStart]),
		IV:        base64.StdEncoding.EncodeToString(iv),
		Tag:       base64.StdEncoding.EncodeToString(sealed[tagStart:]),
		Version:   version,
	}, nil
}

// Decrypt verifies the GCM tag and returns the plaintext. Any malformed
// field, unknown key version, or tag mismatch fails closed with the same
// generic error. Decrypting a ciphertext from a non-current key version is
// expected under rotation and logs a warning only.
func (c *Cipher) Decrypt(data *EncryptedSSN) (string, error) {
	if data == nil {
		return "", ErrDecryptFailed
	}

	c.mu.RLock()
	aead, ok := c.aeads[data.Version]
	current := c.version
	c.mu.RUnlock()

	if !ok {
		c.logger.Error().Int("version", data.Version).Msg("ssn decrypt: no key registered for ciphertext version")
		return "", ErrDecryptFailed
	}
	if data.Version != current {
		c.logger.Warn().
			Int("ciphertext_version", data.Version).
			Int("current_version", current).
			Msg("ssn decrypt: ciphertext uses a non-current key version")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(data.Encrypted)
	if err != nil {
		c.logger.Error().Msg("ssn decrypt: malformed ciphertext encoding")
		return "", ErrDecryptFailed
	}
	iv, err := base64.StdEncoding.DecodeString(data.IV)
	if err != nil || len(iv) != ivLength {
		c.logger.Error().Msg("ssn decrypt: malformed iv")
		return "", ErrDecryptFailed
	}
	tag, err := base64.StdEncoding.DecodeString(data.Tag)
	if err != nil {
		c.logger.Error().Msg("ssn decrypt: malformed tag encoding")
		return "", ErrDecryptFailed
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		c.logger.Error().Msg("ssn decrypt: authentication failed")
		return "", ErrDecryptFailed
	}

	return string(plaintext), nil
}

func deriveAEAD(secret, salt string) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(secret), []byte(salt), pbkdf2Iterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}
