package payload

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec errors.
var (
	ErrInvalidFormat    = errors.New("payload: invalid format")
	ErrSignatureInvalid = errors.New("payload: signature verification failed")
	ErrDecryptFailed    = errors.New("payload: decryption failed")
)

// envelope is the wire form of a request payload.
type envelope struct {
	ID    string                 `msgpack:"id"`
	Fetch map[int]map[string]any `msgpack:"fetch"`
}

// Codec packs a request payload for embedding in a rendered page. The
// table is msgpack-encoded, then either HMAC-signed (visible but
// tamper-proof) or AES-256-GCM sealed (opaque) — the same two trust modes
// used for component props, applied to the SSR fetch payload.
type Codec struct {
	key []byte
	gcm cipher.AEAD
}

// NewCodec creates a codec from the given key. Keys shorter than 32 bytes
// are stretched through SHA-256.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{key: key, gcm: gcm}, nil
}

// Encode serializes a payload into an embeddable string. Sealed payloads
// are encrypted; otherwise the encoding is signed.
func (c *Codec) Encode(p *Payload, sealed bool) (string, error) {
	packed, err := msgpack.Marshal(envelope{ID: p.ID, Fetch: p.toWire()})
	if err != nil {
		return "", fmt.Errorf("payload: marshal: %w", err)
	}
	if sealed {
		return c.seal(packed)
	}
	return c.sign(packed), nil
}

// Decode parses an embedded payload string, verifying the signature or
// decrypting as appropriate for the mode it was encoded with.
func (c *Codec) Decode(encoded string, sealed bool) (*Payload, error) {
	var packed []byte
	var err error
	if sealed {
		packed, err = c.open(encoded)
	} else {
		packed, err = c.verify(encoded)
	}
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := msgpack.Unmarshal(packed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &Payload{ID: env.ID, Table: tableFromWire(env.Fetch)}, nil
}

// sign produces "base64(data).base64(hmac[:16])".
func (c *Codec) sign(data []byte) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	sig := mac.Sum(nil)[:16]
	return base64.RawURLEncoding.EncodeToString(data) + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func (c *Codec) verify(encoded string) ([]byte, error) {
	body, sigPart, ok := strings.Cut(encoded, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	if !hmac.Equal(sig, mac.Sum(nil)[:16]) {
		return nil, ErrSignatureInvalid
	}
	return data, nil
}

func (c *Codec) seal(data []byte) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(c.gcm.Seal(nonce, nonce, data, nil)), nil
}

func (c *Codec) open(encoded string) ([]byte, error) {
	blob, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(blob) < c.gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}
	nonce, ciphertext := blob[:c.gcm.NonceSize()], blob[c.gcm.NonceSize():]
	plain, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plain, nil
}
