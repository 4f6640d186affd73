// Package credential is the process-wide handle for venue signing keys. The
// core never holds a signing key in a field; it asks the handle for a
// transient copy and must release it, which zeroes the backing buffer.
package credential

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"arb-core/pkg/crypto"
)

// Handle holds the two venues' signing material at rest, encrypted, and
// hands out zero-on-release copies.
type Handle struct {
	mu        sync.Mutex
	km        *crypto.KeyManager
	encrypted map[string]string // venue -> ENC[...] ciphertext
}

// New constructs a Handle using the process's MASTER_ENCRYPTION_KEY(s).
func New() (*Handle, error) {
	km, err := crypto.NewKeyManager()
	if err != nil {
		return nil, fmt.Errorf("credential: %w", err)
	}
	return &Handle{km: km, encrypted: make(map[string]string)}, nil
}

// LoadFromFile reads a key file's contents, encrypts it at rest under the
// given venue name. The plaintext byte slice read from disk is zeroed
// immediately after encryption.
func (h *Handle) LoadFromFile(venue, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("credential: read %s key: %w", venue, err)
	}
	plain := strings.TrimSpace(string(raw))
	enc, err := h.km.Encrypt(plain)
	zero(raw)
	if err != nil {
		return fmt.Errorf("credential: encrypt %s key: %w", venue, err)
	}
	h.mu.Lock()
	h.encrypted[venue] = enc
	h.mu.Unlock()
	return nil
}

// Copy is a transient decrypted copy of a signing key. Release MUST be
// called as soon as the caller is done signing with it.
type Copy struct {
	bytes []byte
}

// Bytes exposes the decrypted key material for the duration between
// acquisition and Release.
func (c *Copy) Bytes() []byte { return c.bytes }

// Release zeroes the transient copy's backing array.
func (c *Copy) Release() { zero(c.bytes) }

// Acquire decrypts the venue's signing key into a fresh transient copy. The
// caller must call Release when finished.
func (h *Handle) Acquire(venue string) (*Copy, error) {
	h.mu.Lock()
	enc, ok := h.encrypted[venue]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("credential: no key loaded for venue %q", venue)
	}
	plain, err := h.km.Decrypt(enc)
	if err != nil {
		return nil, fmt.Errorf("credential: decrypt %s key: %w", venue, err)
	}
	cp := &Copy{bytes: []byte(plain)}
	return cp, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
