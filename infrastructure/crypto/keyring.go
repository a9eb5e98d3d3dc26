package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/hkdf"
)

var hkdfSalt = []byte("social-publisher-credentials")

// ErrUnknownKey is returned when a ciphertext references a key id the ring does not hold.
var ErrUnknownKey = errors.New("unknown encryption key")

// KeyRing encrypts credential secrets with AES-256-GCM. Ciphertexts are prefixed with the
// id of the key that sealed them, so old keys stay usable for decryption after rotation.
type KeyRing struct {
	activeID string
	keys     map[string]cipher.AEAD
}

// NewKeyRing derives one AEAD per secret. activeID selects the key used for new ciphertexts.
func NewKeyRing(activeID string, secrets map[string]string) (*KeyRing, error) {
	if len(secrets) == 0 {
		return nil, errors.New("at least one encryption key is required")
	}
	if activeID == "" {
		activeID = newestKeyID(secrets)
	}
	if _, ok := secrets[activeID]; !ok {
		return nil, fmt.Errorf("active key %q not configured", activeID)
	}
	ring := &KeyRing{activeID: activeID, keys: make(map[string]cipher.AEAD, len(secrets))}
	for id, secret := range secrets {
		if strings.Contains(id, ":") {
			return nil, fmt.Errorf("key id %q must not contain ':'", id)
		}
		aead, err := deriveAEAD(id, secret)
		if err != nil {
			return nil, err
		}
		ring.keys[id] = aead
	}
	return ring, nil
}

func deriveAEAD(id, secret string) (cipher.AEAD, error) {
	if secret == "" {
		return nil, fmt.Errorf("key %q has an empty secret", id)
	}
	reader := hkdf.New(sha256.New, []byte(secret), hkdfSalt, []byte("credential-key-"+id))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key %q: %w", id, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// newestKeyID picks the lexically greatest id, so "v2" wins over "v1" when no active id is set.
func newestKeyID(secrets map[string]string) string {
	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[len(ids)-1]
}

// ActiveKeyID returns the id used for new ciphertexts.
func (k *KeyRing) ActiveKeyID() string { return k.activeID }

// Encrypt seals plaintext under the active key. Empty input stays empty.
func (k *KeyRing) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead := k.keys[k.activeID]
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(k.activeID))
	return k.activeID + ":" + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt under any key in the ring.
func (k *KeyRing) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	id, payload, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", errors.New("malformed ciphertext")
	}
	aead, found := k.keys[id]
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, id)
	}
	raw, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, []byte(id))
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

// NeedsRotation reports whether ciphertext was sealed under a key other than the active one.
func (k *KeyRing) NeedsRotation(ciphertext string) bool {
	if ciphertext == "" {
		return false
	}
	id, _, _ := strings.Cut(ciphertext, ":")
	return id != k.activeID
}
