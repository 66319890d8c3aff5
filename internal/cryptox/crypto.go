// Package cryptox implements the vault's cipher codec and key derivation
// helpers.
//
// Payloads are serialized to JSON and sealed with AES-256-GCM. Every call to
// Encrypt draws a fresh salt and nonce, derives a per-payload subkey from the
// session key with HKDF-SHA256 and packs everything into a self-contained,
// base64-encoded envelope:
//
//	"gv1" | salt (16) | nonce (12) | ciphertext+tag
//
// Decrypting under a different session key fails GCM authentication and is
// reported as common.ErrDecryption.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the length of session keys and per-payload subkeys.
	KeySize = 32
	// SaltSize is the length of the per-envelope HKDF salt.
	SaltSize  = 16
	nonceSize = 12
)

var (
	envelopeMagic = []byte("gv1")
	subkeyInfo    = []byte("gophvault item payload v1")
)

// KeyFromPassphrase returns SHA-256(passphrase). It is total: the empty
// passphrase yields the digest of the empty string.
func KeyFromPassphrase(passphrase []byte) []byte {
	sum := sha256.Sum256(passphrase)
	return sum[:]
}

// DeriveMasterKey derives a 32-byte key from password and salt with Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

func newGCM(key, salt []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(key))
	}

	subkey := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, salt, subkeyInfo), subkey); err != nil {
		return nil, err
	}
	defer common.WipeByteArray(subkey)

	block, err := aes.NewCipher(subkey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt serializes value to JSON and seals it under key.
//
// The returned string is a base64 envelope carrying its own salt and nonce,
// so two calls with identical inputs produce different ciphertexts.
//
// Example:
//
//	key := cryptox.KeyFromPassphrase([]byte("correct-horse"))
//	ct, err := cryptox.Encrypt(map[string]any{"user": "alice"}, key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var out map[string]any
//	if err := cryptox.Decrypt(ct, key, &out); err != nil {
//	    log.Fatal(err)
//	}
func Encrypt(value any, key []byte) (string, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("serialize payload: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	salt := common.GenerateRandByteArray(SaltSize)
	nonce := common.GenerateRandByteArray(nonceSize)

	aead, err := newGCM(key, salt)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, len(envelopeMagic)+SaltSize+nonceSize+len(plaintext)+aead.Overhead())
	out = append(out, envelopeMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, envelopeMagic)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens an envelope produced by Encrypt and unmarshals the JSON
// plaintext into v. Every failure wraps common.ErrDecryption.
func Decrypt(ciphertext string, key []byte, v any) error {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return fmt.Errorf("%w: malformed envelope: %v", common.ErrDecryption, err)
	}

	header := len(envelopeMagic) + SaltSize + nonceSize
	if len(raw) < header || !bytes.Equal(raw[:len(envelopeMagic)], envelopeMagic) {
		return fmt.Errorf("%w: malformed envelope", common.ErrDecryption)
	}

	salt := raw[len(envelopeMagic) : len(envelopeMagic)+SaltSize]
	nonce := raw[len(envelopeMagic)+SaltSize : header]

	aead, err := newGCM(key, salt)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	plaintext, err := aead.Open(nil, nonce, raw[header:], envelopeMagic)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	defer common.WipeByteArray(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: deserialize payload: %v", common.ErrDecryption, err)
	}
	return nil
}

// DecryptValue is Decrypt into a generic JSON value (string, float64, bool,
// map[string]any, []any or nil).
func DecryptValue(ciphertext string, key []byte) (any, error) {
	var v any
	if err := Decrypt(ciphertext, key, &v); err != nil {
		return nil, err
	}
	return v, nil
}
