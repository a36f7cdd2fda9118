package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
)

// EnvelopeKey is the variable holding the sealed state inside an envelope.
const EnvelopeKey = "__encrypted__"

var (
	// ErrInvalidKey is returned for keys that are not 32 bytes long.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")
	// ErrNotEncrypted is returned when a stored state carries no envelope.
	ErrNotEncrypted = errors.New("state is missing encrypted data envelope")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey seals new data. Must be 32 bytes.
	ActiveKey []byte

	// FallbackKeys are tried, in order, when the active key cannot open a
	// stored envelope. Used while rotating keys.
	FallbackKeys [][]byte
}

func (c EncryptionConfig) validate() error {
	if len(c.ActiveKey) != 32 {
		return fmt.Errorf("active key: %w", ErrInvalidKey)
	}
	for i, k := range c.FallbackKeys {
		if len(k) != 32 {
			return fmt.Errorf("fallback key %d: %w", i, ErrInvalidKey)
		}
	}
	return nil
}

type encryptionMiddleware struct {
	next   ports.StateStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals the whole frame
// chain with AES-GCM. The backing store only sees an envelope carrying the
// session ID, status and update time.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	plainText, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	ciphertext, err := seal(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt state: %w", err)
	}

	envelope := domain.NewState(sessionID, "")
	envelope.Status = state.Status
	envelope.UpdatedAt = state.UpdatedAt
	envelope.Variables[EnvelopeKey] = base64.StdEncoding.EncodeToString(ciphertext)

	return m.next.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Plain states are refused rather than passed through.
	encoded, ok := envelope.Variables[EnvelopeKey].(string)
	if !ok {
		return nil, ErrNotEncrypted
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	plainText, err := openWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(plainText, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}
	if state.Variables == nil {
		state.Variables = make(map[string]any)
	}
	return &state, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal returns nonce || ciphertext.
func seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func openWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := open(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func open(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
